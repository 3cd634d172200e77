// AngelaMos | 2026
// service.go

package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/config"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/opportunity"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
	"github.com/carterperez-dev/pipeline-crm/internal/task"
)

const snapshotKey = "alerts:snapshot"

var errSnapshotMissing = errors.New("alerts snapshot not cached")

type TaskSource interface {
	Overdue(ctx context.Context) ([]task.Task, error)
}

type DealSource interface {
	ListAll(ctx context.Context) ([]opportunity.Opportunity, error)
}

type Service struct {
	tasks   TaskSource
	deals   DealSource
	redis   *redis.Client
	guard   *access.Guard
	metrics *core.Metrics
	logger  *slog.Logger
	cfg     config.AlertsConfig
	group   singleflight.Group
	now     func() time.Time
}

type ServiceConfig struct {
	Tasks   TaskSource
	Deals   DealSource
	Redis   *redis.Client
	Guard   *access.Guard
	Metrics *core.Metrics
	Logger  *slog.Logger
	Alerts  config.AlertsConfig
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tasks:   cfg.Tasks,
		deals:   cfg.Deals,
		redis:   cfg.Redis,
		guard:   cfg.Guard,
		metrics: cfg.Metrics,
		logger:  logger,
		cfg:     cfg.Alerts,
		now:     time.Now,
	}
}

// Refresh recomputes the snapshot and replaces the cached copy.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	ctx, span := core.StartSpan(ctx, "alerts.refresh")
	snap, err := s.compute(ctx)
	core.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.metrics.SetAlerts(TypeOverdueTask, len(snap.OverdueTasks))
	s.metrics.SetAlerts(TypeOngoingIssue, len(snap.OngoingIssues))
	s.metrics.SetAlerts(TypeStagnation, len(snap.StagnationAlerts))

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode alerts: %w", err)
	}
	if err := s.redis.Set(ctx, snapshotKey, payload, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Warn("cache alerts snapshot", "error", err)
	}

	return snap, nil
}

// ForUser returns the alerts u is allowed to see. A cache miss computes
// the snapshot once for all concurrent callers.
func (s *Service) ForUser(ctx context.Context, u policy.User) (*Snapshot, error) {
	snap, err := s.cached(ctx)
	if err != nil {
		return nil, err
	}
	return s.filter(u, snap), nil
}

// CacheReady reports whether a snapshot is currently cached.
func (s *Service) CacheReady(ctx context.Context) error {
	n, err := s.redis.Exists(ctx, snapshotKey).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return errSnapshotMissing
	}
	return nil
}

func (s *Service) cached(ctx context.Context) (*Snapshot, error) {
	raw, err := s.redis.Get(ctx, snapshotKey).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return &snap, nil
		}
		s.logger.Warn("discarding unreadable alerts snapshot")
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("read alerts snapshot", "error", err)
	}

	// shared by every waiter, so one caller going away must not fail the rest
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(snapshotKey, func() (any, error) {
		return s.Refresh(shared)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *Service) compute(ctx context.Context) (*Snapshot, error) {
	now := s.now().UTC()
	snap := &Snapshot{
		GeneratedAt:      now,
		OverdueTasks:     []TaskAlert{},
		OngoingIssues:    []TaskAlert{},
		StagnationAlerts: []StagnationAlert{},
	}

	overdue, err := s.tasks.Overdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load overdue tasks: %w", err)
	}

	for i := range overdue {
		t := &overdue[i]
		days := t.DaysOverdue(now)
		if days == 0 {
			continue
		}

		alert := TaskAlert{
			TaskID:      t.ID,
			Subject:     t.Subject,
			Owner:       t.OwnerName(),
			Priority:    t.Priority,
			DueDate:     *t.DueDate,
			DaysOverdue: days,
		}
		if days > s.cfg.EscalationDays {
			snap.OngoingIssues = append(snap.OngoingIssues, alert)
			continue
		}
		snap.OverdueTasks = append(snap.OverdueTasks, alert)
	}

	deals, err := s.deals.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load deals: %w", err)
	}

	for i := range deals {
		o := &deals[i]
		if o.Stage.IsTerminal() {
			continue
		}
		days := int(now.Sub(o.StageChangedAt).Hours() / 24)
		if days < s.cfg.StagnationDays {
			continue
		}
		snap.StagnationAlerts = append(snap.StagnationAlerts, StagnationAlert{
			OpportunityID:   o.ID,
			Name:            o.Name,
			Owner:           o.OwnerName(),
			Stage:           o.Stage,
			StageLabel:      o.Stage.DisplayName(),
			DaysSinceUpdate: days,
		})
	}

	snap.count()
	return snap, nil
}

func (s *Service) filter(u policy.User, snap *Snapshot) *Snapshot {
	out := &Snapshot{
		GeneratedAt:      snap.GeneratedAt,
		OverdueTasks:     visible(s.guard, u, snap.OverdueTasks, TaskAlert.entity),
		OngoingIssues:    visible(s.guard, u, snap.OngoingIssues, TaskAlert.entity),
		StagnationAlerts: visible(s.guard, u, snap.StagnationAlerts, StagnationAlert.entity),
	}
	out.count()
	return out
}

func visible[T any](
	g *access.Guard,
	u policy.User,
	items []T,
	entity func(T) policy.Entity,
) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if g.Visible(u, entity(it)) {
			out = append(out, it)
		}
	}
	return out
}

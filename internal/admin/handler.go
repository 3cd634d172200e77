// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/pipeline-crm/internal/alerts"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

type AlertRefresher interface {
	Refresh(ctx context.Context) (*alerts.Snapshot, error)
}

type HandlerConfig struct {
	Repository Repository
	Alerts     AlertRefresher
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	DBPing     func(ctx context.Context) error
	RedisPing  func(ctx context.Context) error
}

// Handler serves operator views. Every route sits behind the gate passed to
// RegisterRoutes.
type Handler struct {
	cfg HandlerConfig
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, gate func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator, gate)

		r.Get("/overview", h.GetOverview)
		r.Get("/stats", h.GetStats)
		r.Post("/alerts/refresh", h.RefreshAlerts)
	})
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Repository == nil {
		core.NotFound(w, "overview")
		return
	}

	overview, err := h.cfg.Repository.Overview(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, overview)
}

// GetStats pings both stores concurrently and reports pool and process state.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := StatsResponse{
		Database: Dependency{Healthy: true},
		Redis:    Dependency{Healthy: true},
		Runtime:  readRuntime(),
	}

	var g errgroup.Group
	g.Go(func() error {
		resp.Database.Healthy = ping(ctx, h.cfg.DBPing)
		return nil
	})
	g.Go(func() error {
		resp.Redis.Healthy = ping(ctx, h.cfg.RedisPing)
		return nil
	})
	_ = g.Wait() //nolint:errcheck // pings report through resp

	if h.cfg.DBStats != nil {
		s := h.cfg.DBStats()
		resp.Database.Pool = &Pool{
			Max:     s.MaxOpenConnections,
			Open:    s.OpenConnections,
			InUse:   s.InUse,
			Idle:    s.Idle,
			Waits:   s.WaitCount,
			WaitFor: s.WaitDuration.String(),
		}
	}
	if h.cfg.RedisStats != nil {
		s := h.cfg.RedisStats()
		resp.Redis.Pool = &Pool{
			Open:  int(s.TotalConns),
			Idle:  int(s.IdleConns),
			Waits: int64(s.Timeouts),
		}
	}

	core.OK(w, resp)
}

// RefreshAlerts recomputes the alert snapshot outside the cron schedule.
func (h *Handler) RefreshAlerts(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Alerts == nil {
		core.NotFound(w, "alerts")
		return
	}

	snap, err := h.cfg.Alerts.Refresh(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, AlertRefreshResponse{
		GeneratedAt:      snap.GeneratedAt,
		OverdueTasks:     len(snap.OverdueTasks),
		OngoingIssues:    len(snap.OngoingIssues),
		StagnationAlerts: len(snap.StagnationAlerts),
	})
}

func ping(ctx context.Context, fn func(context.Context) error) bool {
	return fn == nil || fn(ctx) == nil
}

func readRuntime() RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeStats{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  m.HeapAlloc,
		NumGC:      m.NumGC,
	}
}

type StatsResponse struct {
	Database Dependency   `json:"database"`
	Redis    Dependency   `json:"redis"`
	Runtime  RuntimeStats `json:"runtime"`
}

type Dependency struct {
	Healthy bool  `json:"healthy"`
	Pool    *Pool `json:"pool,omitempty"`
}

type Pool struct {
	Max     int    `json:"max,omitempty"`
	Open    int    `json:"open"`
	InUse   int    `json:"in_use"`
	Idle    int    `json:"idle"`
	Waits   int64  `json:"waits"`
	WaitFor string `json:"wait_for,omitempty"`
}

type RuntimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapBytes  uint64 `json:"heap_bytes"`
	NumGC      uint32 `json:"num_gc"`
}

type AlertRefreshResponse struct {
	GeneratedAt      time.Time `json:"generated_at"`
	OverdueTasks     int       `json:"overdue_tasks"`
	OngoingIssues    int       `json:"ongoing_issues"`
	StagnationAlerts int       `json:"stagnation_alerts"`
}

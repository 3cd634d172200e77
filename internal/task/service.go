// AngelaMos | 2026
// service.go

package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type OwnerDirectory interface {
	NameExists(ctx context.Context, name string) (bool, error)
}

type Service struct {
	repo   Repository
	guard  *access.Guard
	owners OwnerDirectory
	now    func() time.Time
}

func NewService(repo Repository, guard *access.Guard, owners OwnerDirectory) *Service {
	return &Service{
		repo:   repo,
		guard:  guard,
		owners: owners,
		now:    time.Now,
	}
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Create(
	ctx context.Context,
	u policy.User,
	req CreateTaskRequest,
) (*Task, error) {
	owner := u.Name
	if req.Owner != nil {
		owner = strings.TrimSpace(*req.Owner)
	}

	e := policy.TaskEntity(owner)
	if err := s.guard.Check(ctx, u, policy.ActionCreate, &e); err != nil {
		return nil, err
	}

	if err := s.ensureOwner(ctx, u, owner); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, core.ValidationError("subject must not be empty")
	}

	t := &Task{
		ID:            uuid.New().String(),
		Subject:       subject,
		DueDate:       req.DueDate,
		Owner:         optional(owner),
		Priority:      orDefault(req.Priority, PriorityMedium),
		Status:        StatusPending,
		Notes:         req.Notes,
		OpportunityID: req.OpportunityID,
		AccountID:     req.AccountID,
	}
	s.setStatus(t, orDefault(req.Status, StatusPending))

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Get(ctx context.Context, u policy.User, id string) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e := t.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionView, &e); err != nil {
		return nil, err
	}

	return t, nil
}

// List resolves the named view against the caller and the current day.
// The daily view is always the caller's own work.
func (s *Service) List(
	ctx context.Context,
	u policy.User,
	params ListParams,
) ([]Task, int, error) {
	perms := policy.PermissionsOf(u.Role)
	switch {
	case perms.Has(policy.PermViewAll):
	case perms.Has(policy.PermViewOwn):
		params.visibleTo = u.Name
	default:
		return nil, 0, s.guard.Check(ctx, u, policy.ActionViewAll, nil)
	}

	today := StartOfDay(s.now())
	tomorrow := today.AddDate(0, 0, 1)

	switch params.View {
	case "", ViewAll:
	case ViewOverdue:
		params.openOnly = true
		params.dueBefore = &today
	case ViewDaily:
		params.openOnly = true
		params.Owner = u.Name
		params.dueFrom = &today
		params.dueBefore = &tomorrow
	case ViewPipeline:
		params.pipelineOnly = true
	default:
		return nil, 0, core.ValidationError(fmt.Sprintf("unknown task view %q", params.View))
	}

	return s.repo.List(ctx, params)
}

// Overdue lists every open task due before today regardless of owner.
// Callers filter by visibility.
func (s *Service) Overdue(ctx context.Context) ([]Task, error) {
	return s.repo.ListOverdue(ctx, StartOfDay(s.now()))
}

func (s *Service) Update(
	ctx context.Context,
	u policy.User,
	id string,
	req UpdateTaskRequest,
) (*Task, error) {
	return s.repo.Update(ctx, id, func(t *Task) error {
		return s.apply(ctx, u, t, req)
	})
}

// apply authorizes u against the locked row and then mutates it.
func (s *Service) apply(ctx context.Context, u policy.User, t *Task, req UpdateTaskRequest) error {
	e := t.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionEdit, &e); err != nil {
		return err
	}

	if req.Owner != nil {
		owner := strings.TrimSpace(*req.Owner)
		if owner != t.OwnerName() {
			next := policy.TaskEntity(owner)
			if err := s.guard.Check(ctx, u, policy.ActionEdit, &next); err != nil {
				return err
			}
			if err := s.ensureOwner(ctx, u, owner); err != nil {
				return err
			}
			t.Owner = optional(owner)
		}
	}

	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return core.ValidationError("subject must not be empty")
		}
		t.Subject = subject
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.Notes != nil {
		t.Notes = *req.Notes
	}
	if req.OpportunityID != nil {
		t.OpportunityID = req.OpportunityID
	}
	if req.AccountID != nil {
		t.AccountID = req.AccountID
	}
	if req.Status != nil {
		s.setStatus(t, *req.Status)
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, u policy.User, id string) error {
	return s.repo.Delete(ctx, id, func(t *Task) error {
		e := t.Entity()
		return s.guard.Check(ctx, u, policy.ActionDelete, &e)
	})
}

// setStatus stamps completed_at on the transition into Completed and clears
// it when a task is reopened.
func (s *Service) setStatus(t *Task, status string) {
	switch {
	case status == StatusCompleted && t.CompletedAt == nil:
		now := s.now().UTC()
		t.CompletedAt = &now
	case status != StatusCompleted:
		t.CompletedAt = nil
	}
	t.Status = status
}

func (s *Service) ensureOwner(ctx context.Context, u policy.User, owner string) error {
	if owner == "" || owner == u.Name || s.owners == nil {
		return nil
	}

	ok, err := s.owners.NameExists(ctx, owner)
	if err != nil {
		return fmt.Errorf("check owner: %w", err)
	}
	if !ok {
		return core.ValidationError(fmt.Sprintf("unknown owner %q", owner))
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

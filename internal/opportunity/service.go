// AngelaMos | 2026
// service.go

package opportunity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

// OwnerDirectory resolves owner names to live users.
type OwnerDirectory interface {
	NameExists(ctx context.Context, name string) (bool, error)
}

type Service struct {
	repo    Repository
	guard   *access.Guard
	owners  OwnerDirectory
	metrics *core.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(
	repo Repository,
	guard *access.Guard,
	owners OwnerDirectory,
	metrics *core.Metrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		guard:   guard,
		owners:  owners,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

var one = decimal.NewFromInt(1)

func (s *Service) Create(
	ctx context.Context,
	u policy.User,
	req CreateOpportunityRequest,
) (*Opportunity, error) {
	owner := u.Name
	if req.Owner != nil {
		owner = strings.TrimSpace(*req.Owner)
	}

	e := policy.OpportunityEntity(owner, policy.StageNewLead)
	if err := s.guard.Check(ctx, u, policy.ActionCreate, &e); err != nil {
		return nil, err
	}

	if err := s.ensureOwner(ctx, u, owner); err != nil {
		return nil, err
	}

	fields, err := NormalizeFields(policy.StageNewLead, req.Fields, false)
	if err != nil {
		return nil, invalid(err)
	}

	revenue := decimal.Zero
	if req.Revenue != nil {
		if req.Revenue.IsNegative() {
			return nil, core.ValidationError("revenue must not be negative")
		}
		revenue = req.Revenue.Round(2)
	}

	o := &Opportunity{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		AccountID:   req.AccountID,
		Owner:       optional(owner),
		Stage:       policy.StageNewLead,
		Revenue:     revenue,
		Probability: DefaultProbability(policy.StageNewLead),
		Fields:      fields,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "opportunity created",
		"opportunity_id", o.ID,
		"owner", owner,
		"by", u.Name,
	)

	return o, nil
}

func (s *Service) Get(
	ctx context.Context,
	u policy.User,
	id string,
) (*Opportunity, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e := o.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionView, &e); err != nil {
		return nil, err
	}

	return o, nil
}

// List returns the deals visible to u. Roles without view_all only see
// their own deals and unassigned ones.
func (s *Service) List(
	ctx context.Context,
	u policy.User,
	params ListParams,
) ([]Opportunity, int, error) {
	if params.Stage != "" {
		st, err := policy.ParseStage(params.Stage)
		if err != nil {
			return nil, 0, invalid(err)
		}
		params.Stage = st.String()
	}

	perms := policy.PermissionsOf(u.Role)
	switch {
	case perms.Has(policy.PermViewAll):
	case perms.Has(policy.PermViewOwn):
		params.visibleTo = u.Name
	default:
		return nil, 0, s.guard.Check(ctx, u, policy.ActionViewAll, nil)
	}

	return s.repo.List(ctx, params)
}

// Visible returns every deal u may view, for exports and reports.
func (s *Service) Visible(
	ctx context.Context,
	u policy.User,
) ([]Opportunity, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Opportunity, 0, len(all))
	for _, o := range all {
		if s.guard.Visible(u, o.Entity()) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Service) Update(
	ctx context.Context,
	u policy.User,
	id string,
	req UpdateOpportunityRequest,
) (*Opportunity, error) {
	return s.repo.Update(ctx, id, func(o *Opportunity) (*StageChange, error) {
		e := o.Entity()
		if err := s.guard.Check(ctx, u, policy.ActionEdit, &e); err != nil {
			return nil, err
		}

		if req.Owner != nil {
			owner := strings.TrimSpace(*req.Owner)
			if owner != o.OwnerName() {
				next := policy.OpportunityEntity(owner, o.Stage)
				if err := s.guard.Check(ctx, u, policy.ActionEdit, &next); err != nil {
					return nil, err
				}
				if err := s.ensureOwner(ctx, u, owner); err != nil {
					return nil, err
				}
				o.Owner = optional(owner)
			}
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return nil, core.ValidationError("name must not be empty")
			}
			o.Name = name
		}

		if req.AccountID != nil {
			o.AccountID = optional(*req.AccountID)
		}

		if req.Revenue != nil {
			if req.Revenue.IsNegative() {
				return nil, core.ValidationError("revenue must not be negative")
			}
			o.Revenue = req.Revenue.Round(2)
		}

		if req.Probability != nil {
			p := *req.Probability
			if p.IsNegative() || p.GreaterThan(one) {
				return nil, core.ValidationError("probability must be between 0 and 1")
			}
			o.Probability = p.Round(2)
		}

		if len(req.Fields) > 0 {
			fields, err := NormalizeFields(o.Stage, req.Fields, false)
			if err != nil {
				return nil, invalid(err)
			}
			o.Fields = o.Fields.Merge(fields)
		}

		return nil, nil
	})
}

func (s *Service) Delete(ctx context.Context, u policy.User, id string) error {
	return s.repo.Delete(ctx, id, func(o *Opportunity) error {
		e := o.Entity()
		return s.guard.Check(ctx, u, policy.ActionDelete, &e)
	})
}

// MoveStage moves a deal to the requested stage. Authorization runs
// against the locked row, then the supplementary fields for the target
// stage are validated and merged, revenue and probability follow the new
// stage, and the move is appended to the deal's history.
func (s *Service) MoveStage(
	ctx context.Context,
	u policy.User,
	id string,
	req MoveStageRequest,
) (*Opportunity, error) {
	ctx, span := core.StartSpan(ctx, "opportunity.move_stage",
		attribute.String("opportunity.id", id),
		attribute.String("stage.target", req.Stage),
	)
	o, err := s.moveStage(ctx, u, id, req)
	core.EndSpan(span, err)
	return o, err
}

func (s *Service) moveStage(
	ctx context.Context,
	u policy.User,
	id string,
	req MoveStageRequest,
) (*Opportunity, error) {
	target, err := policy.ParseStage(req.Stage)
	if err != nil {
		return nil, invalid(err)
	}

	var from policy.Stage
	o, err := s.repo.Update(ctx, id, func(o *Opportunity) (*StageChange, error) {
		if err := s.guard.CheckMove(ctx, u, o.Entity(), target); err != nil {
			return nil, err
		}

		fields, err := NormalizeFields(target, req.Fields, true)
		if err != nil {
			return nil, invalid(err)
		}

		now := s.now().UTC()
		from = o.Stage

		o.Stage = target
		o.Fields = o.Fields.Merge(fields)
		o.Probability = DefaultProbability(target)
		o.StageChangedAt = now
		if rev, ok := revenueFrom(target, fields); ok {
			o.Revenue = rev.Round(2)
		}
		if target.IsTerminal() {
			o.ClosedAt = &now
		} else {
			o.ClosedAt = nil
		}

		return &StageChange{
			OpportunityID: o.ID,
			FromStage:     from,
			ToStage:       target,
			MovedBy:       u.Name,
			Fields:        fields,
			MovedAt:       now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(from.String(), target.String())
	s.logger.InfoContext(ctx, "stage moved",
		"opportunity_id", o.ID,
		"from", from,
		"to", target,
		"by", u.Name,
	)

	return o, nil
}

// Targets lists the stages u could move the deal into right now. A caller
// who may not move the deal at all gets an empty list.
func (s *Service) Targets(
	ctx context.Context,
	u policy.User,
	id string,
) (*Opportunity, []policy.Stage, error) {
	o, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, nil, err
	}

	e := o.Entity()
	if !policy.CanPerform(u, policy.ActionMoveStage, &e) {
		return o, []policy.Stage{}, nil
	}

	return o, policy.AllowedTargets(u.Role, o.Stage), nil
}

func (s *Service) History(
	ctx context.Context,
	u policy.User,
	id string,
) ([]StageChange, error) {
	if _, err := s.Get(ctx, u, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func Meta(u policy.User) MetaResponse {
	stages := policy.Stages()
	out := make([]StageMeta, 0, len(stages))
	for _, st := range stages {
		out = append(out, StageMeta{
			Stage:    st.String(),
			Label:    st.DisplayName(),
			Terminal: st.IsTerminal(),
			InScope:  policy.InRoleScope(u.Role, st),
			Fields:   FieldsFor(st),
		})
	}

	return MetaResponse{
		Role:        u.Role.String(),
		RoleLabel:   u.Role.DisplayName(),
		Permissions: policy.PermissionsOf(u.Role).Sorted(),
		Stages:      out,
	}
}

// ensureOwner checks that a newly assigned owner is a live user. An empty
// owner leaves the deal unassigned.
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

func invalid(err error) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		return core.ValidationError(fe.Error())
	}
	return core.ValidationError(err.Error())
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// AngelaMos | 2026
// service.go

package account

import (
	"context"
	"fmt"
	"strings"

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
}

func NewService(repo Repository, guard *access.Guard, owners OwnerDirectory) *Service {
	return &Service{repo: repo, guard: guard, owners: owners}
}

func (s *Service) Create(
	ctx context.Context,
	u policy.User,
	req CreateAccountRequest,
) (*Account, error) {
	owner := u.Name
	if req.Owner != nil {
		owner = strings.TrimSpace(*req.Owner)
	}

	e := policy.AccountEntity(owner)
	if err := s.guard.Check(ctx, u, policy.ActionCreate, &e); err != nil {
		return nil, err
	}

	if err := s.ensureOwner(ctx, u, owner); err != nil {
		return nil, err
	}

	status := req.LifecycleStatus
	if status == "" {
		status = LifecycleProspect
	}

	a := &Account{
		ID:              uuid.New().String(),
		CompanyName:     strings.TrimSpace(req.CompanyName),
		Territory:       req.Territory,
		ProductInterest: strings.TrimSpace(req.ProductInterest),
		LeadSource:      req.LeadSource,
		Notes:           req.Notes,
		LifecycleStatus: status,
		Owner:           optional(owner),
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) Get(ctx context.Context, u policy.User, id string) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e := a.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionView, &e); err != nil {
		return nil, err
	}

	return a, nil
}

// List applies the account visibility rule: view_all or edit_accounts sees
// every account, view_own alone sees owned and unassigned ones.
func (s *Service) List(
	ctx context.Context,
	u policy.User,
	params ListParams,
) ([]Account, int, error) {
	perms := policy.PermissionsOf(u.Role)
	switch {
	case perms.HasAny(policy.PermViewAll, policy.PermEditAccounts):
	case perms.Has(policy.PermViewOwn):
		params.visibleTo = u.Name
	default:
		return nil, 0, s.guard.Check(ctx, u, policy.ActionViewAll, nil)
	}

	return s.repo.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	u policy.User,
	id string,
	req UpdateAccountRequest,
) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e := a.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionEdit, &e); err != nil {
		return nil, err
	}

	if req.Owner != nil {
		owner := strings.TrimSpace(*req.Owner)
		if owner != a.OwnerName() {
			next := policy.AccountEntity(owner)
			if err := s.guard.Check(ctx, u, policy.ActionEdit, &next); err != nil {
				return nil, err
			}
			if err := s.ensureOwner(ctx, u, owner); err != nil {
				return nil, err
			}
			a.Owner = optional(owner)
		}
	}

	if req.CompanyName != nil {
		name := strings.TrimSpace(*req.CompanyName)
		if name == "" {
			return nil, core.ValidationError("company name must not be empty")
		}
		a.CompanyName = name
	}
	if req.Territory != nil {
		a.Territory = *req.Territory
	}
	if req.ProductInterest != nil {
		a.ProductInterest = strings.TrimSpace(*req.ProductInterest)
	}
	if req.LeadSource != nil {
		a.LeadSource = *req.LeadSource
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if req.LifecycleStatus != nil {
		a.LifecycleStatus = *req.LifecycleStatus
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) Delete(ctx context.Context, u policy.User, id string) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	e := a.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionDelete, &e); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
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

// AngelaMos | 2026
// service.go

package contact

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type Service struct {
	repo  Repository
	guard *access.Guard
}

func NewService(repo Repository, guard *access.Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

func (s *Service) Create(
	ctx context.Context,
	u policy.User,
	req CreateContactRequest,
) (*Contact, error) {
	e := policy.ContactEntity()
	if err := s.guard.Check(ctx, u, policy.ActionCreate, &e); err != nil {
		return nil, err
	}

	c := &Contact{
		ID:               uuid.New().String(),
		AccountID:        req.AccountID,
		FullName:         strings.TrimSpace(req.FullName),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:            strings.TrimSpace(req.Phone),
		BuyingRole:       strings.TrimSpace(req.BuyingRole),
		IsBillingContact: req.IsBillingContact,
		Notes:            req.Notes,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, u policy.User, id string) (*Contact, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e := c.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionView, &e); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) List(
	ctx context.Context,
	u policy.User,
	params ListParams,
) ([]Contact, int, error) {
	e := policy.ContactEntity()
	if err := s.guard.Check(ctx, u, policy.ActionView, &e); err != nil {
		return nil, 0, err
	}

	return s.repo.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	u policy.User,
	id string,
	req UpdateContactRequest,
) (*Contact, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	e := c.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionEdit, &e); err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, core.ValidationError("full name must not be empty")
		}
		c.FullName = name
	}
	if req.AccountID != nil {
		c.AccountID = *req.AccountID
	}
	if req.Email != nil {
		c.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		c.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.BuyingRole != nil {
		c.BuyingRole = strings.TrimSpace(*req.BuyingRole)
	}
	if req.IsBillingContact != nil {
		c.IsBillingContact = *req.IsBillingContact
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) Delete(ctx context.Context, u policy.User, id string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	e := c.Entity()
	if err := s.guard.Check(ctx, u, policy.ActionDelete, &e); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

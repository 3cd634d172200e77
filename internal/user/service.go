// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/pipeline-crm/internal/auth"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
	role policy.Role,
) (*auth.UserInfo, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("create user: %w", core.ErrInvalidInput)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		Role:         role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	userID string,
) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

// NameExists reports whether a live user carries the given display name.
// Owner fields on deals, accounts and tasks reference users by name.
func (s *Service) NameExists(ctx context.Context, name string) (bool, error) {
	return s.repo.ExistsByName(ctx, name)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateUser applies profile changes. A rename is carried through to every
// record the user owns.
func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name == nil {
		return user, nil
	}

	name := strings.TrimSpace(*req.Name)
	if name == "" {
		return nil, fmt.Errorf("update user: empty name: %w", core.ErrInvalidInput)
	}
	if name == user.Name {
		return user, nil
	}

	if err := s.repo.Rename(ctx, user, name); err != nil {
		return nil, err
	}

	return user, nil
}

// UpdateUserRole changes a role and bumps the token version so that
// outstanding access tokens carrying the old role stop working.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	parsed, err := policy.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("update role: %w: %w", err, core.ErrInvalidInput)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Role == parsed {
		return user, nil
	}

	user.Role = parsed
	if err := s.repo.UpdateRole(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser soft deletes targetID on behalf of requesterID.
func (s *Service) DeleteUser(ctx context.Context, requesterID, targetID string) error {
	if err := s.CanDeleteUser(ctx, requesterID, targetID); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, targetID)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	if _, ok := parseRoleFilter(params.Role); !ok {
		return nil, 0, fmt.Errorf("list users: unknown role: %w", core.ErrInvalidInput)
	}
	return s.repo.List(ctx, params)
}

// Directory lists every live user for owner pickers.
func (s *Service) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toDirectory(users), nil
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, userID)
}

// CanDeleteUser allows self-deletion and lets administrators remove
// anyone who is not an administrator themselves.
func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}

	if !requester.CanAdminister() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.CanAdminister() {
		return fmt.Errorf("cannot delete administrators: %w", core.ErrForbidden)
	}

	return nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		TokenVersion: u.TokenVersion,
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)

// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/middleware"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         policy.Role
	TokenVersion int
	CreatedAt    time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
		role policy.Role,
	) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	repo    Repository
	jwt     *JWTManager
	users   UserProvider
	revoked revocations
	hasher  *core.PasswordHasher
	now     func() time.Time
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	users UserProvider,
	redisClient *redis.Client,
	hasher *core.PasswordHasher,
) *Service {
	return &Service{
		repo:    repo,
		jwt:     jwt,
		users:   users,
		revoked: revocations{rdb: redisClient},
		hasher:  hasher,
		now:     time.Now,
	}
}

// session describes the client a refresh token is issued to. An empty
// familyID starts a new rotation family.
type session struct {
	userAgent string
	ip        string
	familyID  string
	tokenID   string
}

// VerifyAccessToken checks the signature, then the revocation list, then the
// user's token version. Logout, logout-all and role changes all invalidate
// outstanding access tokens this way.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.has(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	case err != nil:
		return nil, fmt.Errorf("verify token: %w", err)
	case claims.TokenVersion < user.TokenVersion:
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ip string,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, core.ErrNotFound) {
		s.hasher.VerifyUnknown(req.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, rehash, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if rehash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, rehash); err != nil {
			slog.WarnContext(ctx, "password rehash not saved", "user_id", user.ID, "error", err)
		}
	}

	return s.issue(ctx, user, session{userAgent: userAgent, ip: ip})
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ip string,
) (*AuthResponse, error) {
	role := policy.RoleSalesRep
	if req.Role != "" {
		parsed, err := policy.ParseRole(req.Role)
		if err != nil {
			return nil, fmt.Errorf("register: %w", core.ErrInvalidInput)
		}
		role = parsed
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Email, hash, req.Name, role)
	if errors.Is(err, core.ErrDuplicateKey) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ctx, user, session{userAgent: userAgent, ip: ip})
}

// Refresh exchanges a refresh token for a new pair. The old token is claimed
// before anything is issued, so of two concurrent exchanges only one wins and
// the other is treated as reuse.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ip string,
) (*AuthResponse, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	if err := stored.Usable(s.now()); err != nil {
		if errors.Is(err, ErrTokenReuse) {
			s.revokeFamily(ctx, stored)
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	next := uuid.New().String()
	if err := s.repo.MarkAsUsed(ctx, stored.ID, next); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.revokeFamily(ctx, stored)
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("claim refresh token: %w", err)
	}

	return s.issue(ctx, user, session{
		userAgent: userAgent,
		ip:        ip,
		familyID:  stored.FamilyID,
		tokenID:   next,
	})
}

func (s *Service) revokeFamily(ctx context.Context, t *RefreshToken) {
	slog.WarnContext(ctx, "refresh token reuse, revoking family",
		"user_id", t.UserID,
		"family_id", t.FamilyID,
	)
	if err := s.repo.RevokeByFamilyID(ctx, t.FamilyID); err != nil {
		slog.ErrorContext(ctx, "revoke token family failed", "family_id", t.FamilyID, "error", err)
	}
}

// Logout revokes the caller's access token and, when given, the refresh
// token of the same session.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if err := s.revoked.add(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}

	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find token: %w", err)
	}
	if stored.UserID != claims.UserID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	err = s.repo.RevokeByID(ctx, stored.ID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// LogoutAll revokes every refresh token and bumps the token version, which
// invalidates every access token already issued.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}
	return nil
}

func (s *Service) GetActiveSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	out := make([]SessionInfo, len(tokens))
	for i := range tokens {
		out[i] = tokens[i].Session()
	}
	return out, nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	t, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if t.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ChangePassword also ends every session, including the caller's.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	ok, _, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return s.LogoutAll(ctx, userID)
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// PurgeExpiredTokens removes refresh tokens past their expiry.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return n, nil
}

func toUserResponse(user *UserInfo) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role.String(),
		RoleLabel:   user.Role.DisplayName(),
		Permissions: policy.PermissionsOf(user.Role).Sorted(),
		CreatedAt:   user.CreatedAt,
	}
}

func (s *Service) issue(ctx context.Context, user *UserInfo, sess session) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Name:         user.Name,
		Role:         user.Role.String(),
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, err := s.jwt.CreateRefreshToken(user.ID, sess.familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	if sess.tokenID == "" {
		sess.tokenID = uuid.New().String()
	}

	err = s.repo.Create(ctx, &RefreshToken{
		ID:        sess.tokenID,
		UserID:    user.ID,
		TokenHash: refresh.Hash,
		FamilyID:  refresh.FamilyID,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: sess.userAgent,
		IPAddress: sess.ip,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &AuthResponse{
		User: toUserResponse(user),
		Tokens: TokenResponse{
			AccessToken:  access.Token,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(time.Until(access.ExpiresAt).Round(time.Second).Seconds()),
			ExpiresAt:    access.ExpiresAt,
		},
	}, nil
}

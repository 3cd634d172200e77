// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

// expiredGrace keeps rotated tokens around long enough for reuse detection
// to still recognise them.
const expiredGrace = 24 * time.Hour

var tokenColumns = []string{
	"id", "user_id", "token_hash", "family_id", "expires_at", "created_at",
	"is_used", "used_at", "revoked_at", "replaced_by_id", "user_agent", "ip_address",
}

type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	FindByID(ctx context.Context, id string) (*RefreshToken, error)
	MarkAsUsed(ctx context.Context, id, replacedByID string) error
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	GetActiveSessionsForUser(ctx context.Context, userID string) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	query, args, err := core.SQL.
		Insert("refresh_tokens").
		Columns("id", "user_id", "token_hash", "family_id", "expires_at", "user_agent", "ip_address").
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.FamilyID,
			token.ExpiresAt,
			token.UserAgent,
			token.IPAddress,
		).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token: %w", err)
	}

	if err := r.db.GetContext(ctx, &token.CreatedAt, query, args...); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

func (r *repository) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	return r.findOne(ctx, squirrel.Eq{"token_hash": tokenHash})
}

func (r *repository) FindByID(ctx context.Context, id string) (*RefreshToken, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

func (r *repository) findOne(ctx context.Context, pred squirrel.Eq) (*RefreshToken, error) {
	query, args, err := core.SQL.Select(tokenColumns...).From("refresh_tokens").Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find refresh token: %w", err)
	}

	var token RefreshToken
	err = r.db.GetContext(ctx, &token, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &token, nil
}

// MarkAsUsed only succeeds once per token. A second caller racing the same
// rotation gets ErrNotFound.
func (r *repository) MarkAsUsed(ctx context.Context, id, replacedByID string) error {
	n, err := r.update(ctx,
		core.SQL.Update("refresh_tokens").
			Set("is_used", true).
			Set("used_at", squirrel.Expr("NOW()")).
			Set("replaced_by_id", replacedByID).
			Where(squirrel.Eq{"id": id, "is_used": false}),
	)
	if err == nil && n == 0 {
		err = core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mark refresh token as used: %w", err)
	}
	return nil
}

func (r *repository) RevokeByID(ctx context.Context, id string) error {
	n, err := r.revoke(ctx, squirrel.Eq{"id": id})
	if err == nil && n == 0 {
		err = core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *repository) RevokeByFamilyID(ctx context.Context, familyID string) error {
	if _, err := r.revoke(ctx, squirrel.Eq{"family_id": familyID}); err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}
	return nil
}

func (r *repository) RevokeAllForUser(ctx context.Context, userID string) error {
	if _, err := r.revoke(ctx, squirrel.Eq{"user_id": userID}); err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}
	return nil
}

func (r *repository) revoke(ctx context.Context, pred squirrel.Eq) (int64, error) {
	return r.update(ctx,
		core.SQL.Update("refresh_tokens").
			Set("revoked_at", squirrel.Expr("NOW()")).
			Where(pred).
			Where(squirrel.Eq{"revoked_at": nil}),
	)
}

func (r *repository) update(ctx context.Context, b squirrel.UpdateBuilder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) GetActiveSessionsForUser(
	ctx context.Context,
	userID string,
) ([]RefreshToken, error) {
	query, args, err := core.SQL.
		Select(tokenColumns...).
		From("refresh_tokens").
		Where(squirrel.Eq{"user_id": userID, "is_used": false, "revoked_at": nil}).
		Where("expires_at > NOW()").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active sessions: %w", err)
	}

	var tokens []RefreshToken
	if err := r.db.SelectContext(ctx, &tokens, query, args...); err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}
	return tokens, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	query, args, err := core.SQL.
		Delete("refresh_tokens").
		Where(squirrel.Lt{"expires_at": time.Now().Add(-expiredGrace)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired tokens: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return n, nil
}

// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Rename(ctx context.Context, user *User, name string) error
	UpdateRole(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ListAll(ctx context.Context) ([]User, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userColumns = `id, email, password_hash, name, role, token_version,
	created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at, token_version`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
	)
	if err != nil {
		if core.IsDuplicateKey(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

// Rename changes the display name and moves ownership of every account,
// opportunity and task from the old name to the new one in one statement.
// Stage history keeps the name that was current at the time of the move.
// Tokens carry the name, so the token version is bumped with it.
func (r *repository) Rename(ctx context.Context, user *User, name string) error {
	query := `
		WITH renamed AS (
			UPDATE users
			SET name = $2, token_version = token_version + 1, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING updated_at, token_version
		), accounts_moved AS (
			UPDATE accounts SET owner = $2 WHERE owner = $3
		), opportunities_moved AS (
			UPDATE opportunities SET owner = $2 WHERE owner = $3
		), tasks_moved AS (
			UPDATE tasks SET owner = $2 WHERE owner = $3
		)
		SELECT updated_at, token_version FROM renamed`

	err := r.db.GetContext(ctx, user, query, user.ID, name, user.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rename user: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsDuplicateKey(err) {
			return fmt.Errorf("rename user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("rename user: %w", err)
	}

	user.Name = name
	return nil
}

func (r *repository) UpdateRole(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET role = $2, token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at, token_version`

	err := r.db.GetContext(ctx, user, query, user.ID, user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	return r.execOne(ctx, "increment token version", query, id)
}

// SoftDelete retires the user and releases everything they owned. The name
// index only covers live users, so a later registrant may take the name and
// must not inherit the records.
func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		WITH deleted AS (
			UPDATE users
			SET deleted_at = NOW(), updated_at = NOW(),
			    token_version = token_version + 1
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING name
		), accounts_released AS (
			UPDATE accounts SET owner = NULL
			WHERE owner IN (SELECT name FROM deleted)
		), opportunities_released AS (
			UPDATE opportunities SET owner = NULL
			WHERE owner IN (SELECT name FROM deleted)
		), tasks_released AS (
			UPDATE tasks SET owner = NULL
			WHERE owner IN (SELECT name FROM deleted)
		)
		SELECT name FROM deleted`

	var name string
	err := r.db.GetContext(ctx, &name, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	where := squirrel.And{squirrel.Eq{"deleted_at": nil}}

	if params.Search != "" {
		pattern := core.ContainsPattern(params.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"name": pattern},
		})
	}

	if role, ok := parseRoleFilter(params.Role); ok && role != "" {
		where = append(where, squirrel.Eq{"role": role})
	}

	countQuery, countArgs, err := core.SQL.
		Select("COUNT(*)").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query, args, err := core.SQL.
		Select(userColumns).
		From("users").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users: %w", err)
	}

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) ListAll(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY name`

	var users []User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list all users: %w", err)
	}

	return users, nil
}

func (r *repository) ExistsByName(
	ctx context.Context,
	name string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE name = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}

	return exists, nil
}

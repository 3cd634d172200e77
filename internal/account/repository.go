// AngelaMos | 2026
// repository.go

package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context, params ListParams) ([]Account, int, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const accountColumns = `id, company_name, territory, product_interest,
	lead_source, notes, lifecycle_status, owner, created_at, updated_at`

func (r *repository) Create(ctx context.Context, a *Account) error {
	query, args, err := core.SQL.
		Insert("accounts").
		Columns(
			"id", "company_name", "territory", "product_interest",
			"lead_source", "notes", "lifecycle_status", "owner",
		).
		Values(
			a.ID, a.CompanyName, a.Territory, a.ProductInterest,
			a.LeadSource, a.Notes, a.LifecycleStatus, a.Owner,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create account: %w", err)
	}

	if err := r.db.GetContext(ctx, a, query, args...); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	var a Account
	err := r.db.GetContext(ctx, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &a, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Account, int, error) {
	params.Normalize()

	where := squirrel.And{}

	if params.visibleTo != "" {
		where = append(where, squirrel.Or{
			squirrel.Eq{"owner": params.visibleTo},
			squirrel.Eq{"owner": nil},
		})
	}
	if params.Territory != "" {
		where = append(where, squirrel.Eq{"territory": params.Territory})
	}
	if params.LifecycleStatus != "" {
		where = append(where, squirrel.Eq{"lifecycle_status": params.LifecycleStatus})
	}
	if params.Owner != "" {
		where = append(where, squirrel.Eq{"owner": params.Owner})
	}
	if params.Search != "" {
		where = append(where, squirrel.ILike{
			"company_name": core.ContainsPattern(params.Search),
		})
	}

	count := core.SQL.Select("COUNT(*)").From("accounts")
	list := core.SQL.Select(accountColumns).From("accounts")
	if len(where) > 0 {
		count = count.Where(where)
		list = list.Where(where)
	}

	countQuery, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count accounts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query, args, err := list.
		OrderBy("company_name").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list accounts: %w", err)
	}

	var accounts []Account
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, total, nil
}

func (r *repository) Update(ctx context.Context, a *Account) error {
	query, args, err := core.SQL.
		Update("accounts").
		SetMap(map[string]any{
			"company_name":     a.CompanyName,
			"territory":        a.Territory,
			"product_interest": a.ProductInterest,
			"lead_source":      a.LeadSource,
			"notes":            a.Notes,
			"lifecycle_status": a.LifecycleStatus,
			"owner":            a.Owner,
			"updated_at":       squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": a.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account: %w", err)
	}

	err = r.db.GetContext(ctx, &a.UpdatedAt, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update account: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	return nil
}

// Delete removes the account and its contacts. Deals and tasks that
// referenced it keep their rows with the reference cleared.
func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete account: %w", core.ErrNotFound)
	}

	return nil
}

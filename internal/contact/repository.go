// AngelaMos | 2026
// repository.go

package contact

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
	Create(ctx context.Context, c *Contact) error
	GetByID(ctx context.Context, id string) (*Contact, error)
	List(ctx context.Context, params ListParams) ([]Contact, int, error)
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const contactColumns = `id, account_id, full_name, email, phone, buying_role,
	is_billing_contact, notes, created_at, updated_at`

func (r *repository) Create(ctx context.Context, c *Contact) error {
	query, args, err := core.SQL.
		Insert("contacts").
		Columns(
			"id", "account_id", "full_name", "email", "phone",
			"buying_role", "is_billing_contact", "notes",
		).
		Values(
			c.ID, c.AccountID, c.FullName, c.Email, c.Phone,
			c.BuyingRole, c.IsBillingContact, c.Notes,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create contact: %w", err)
	}

	if err := r.db.GetContext(ctx, c, query, args...); err != nil {
		return fmt.Errorf("create contact: %w", mapWriteError(err))
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Contact, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get contact: %w", core.ErrNotFound)
	}

	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	var c Contact
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get contact: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}

	return &c, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Contact, int, error) {
	params.Normalize()

	where := squirrel.And{}
	if params.AccountID != "" {
		where = append(where, squirrel.Eq{"account_id": params.AccountID})
	}
	if params.Search != "" {
		pattern := core.ContainsPattern(params.Search)
		where = append(where, squirrel.Or{
			squirrel.ILike{"full_name": pattern},
			squirrel.ILike{"email": pattern},
		})
	}

	count := core.SQL.Select("COUNT(*)").From("contacts")
	list := core.SQL.Select(contactColumns).From("contacts")
	if len(where) > 0 {
		count = count.Where(where)
		list = list.Where(where)
	}

	countQuery, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count contacts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	query, args, err := list.
		OrderBy("full_name").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list contacts: %w", err)
	}

	var contacts []Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}

	return contacts, total, nil
}

func (r *repository) Update(ctx context.Context, c *Contact) error {
	query, args, err := core.SQL.
		Update("contacts").
		SetMap(map[string]any{
			"account_id":         c.AccountID,
			"full_name":          c.FullName,
			"email":              c.Email,
			"phone":              c.Phone,
			"buying_role":        c.BuyingRole,
			"is_billing_contact": c.IsBillingContact,
			"notes":              c.Notes,
			"updated_at":         squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update contact: %w", err)
	}

	err = r.db.GetContext(ctx, &c.UpdatedAt, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update contact: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update contact: %w", mapWriteError(err))
	}

	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete contact: %w", core.ErrNotFound)
	}

	return nil
}

func mapWriteError(err error) error {
	if core.IsForeignKeyViolation(err) {
		return fmt.Errorf("unknown account: %w", core.ErrInvalidInput)
	}
	return err
}

// AngelaMos | 2026
// repository.go

package opportunity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

// ApplyFunc mutates a locked row in place. A non-nil StageChange is
// appended to the deal's history in the same transaction.
type ApplyFunc func(o *Opportunity) (*StageChange, error)

type Repository interface {
	Create(ctx context.Context, o *Opportunity) error
	GetByID(ctx context.Context, id string) (*Opportunity, error)
	List(ctx context.Context, params ListParams) ([]Opportunity, int, error)
	ListAll(ctx context.Context) ([]Opportunity, error)
	Update(ctx context.Context, id string, apply ApplyFunc) (*Opportunity, error)
	Delete(ctx context.Context, id string, check func(o *Opportunity) error) error
	History(ctx context.Context, id string) ([]StageChange, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const opportunityColumns = `id, name, account_id, owner, stage, revenue,
	probability, fields, stage_changed_at, closed_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, o *Opportunity) error {
	query, args, err := core.SQL.
		Insert("opportunities").
		Columns(
			"id", "name", "account_id", "owner", "stage",
			"revenue", "probability", "fields",
		).
		Values(
			o.ID, o.Name, o.AccountID, o.Owner, o.Stage,
			o.Revenue, o.Probability, o.Fields,
		).
		Suffix("RETURNING stage_changed_at, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create opportunity: %w", err)
	}

	if err := r.db.GetContext(ctx, o, query, args...); err != nil {
		return fmt.Errorf("create opportunity: %w", mapWriteError(err))
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Opportunity, error) {
	return getOpportunity(ctx, r.db, id, false)
}

func getOpportunity(
	ctx context.Context,
	db core.DBTX,
	id string,
	lock bool,
) (*Opportunity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get opportunity: %w", core.ErrNotFound)
	}

	query := `SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var o Opportunity
	err := db.GetContext(ctx, &o, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get opportunity: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}

	return &o, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Opportunity, int, error) {
	params.Normalize()

	where := squirrel.And{}

	if params.visibleTo != "" {
		where = append(where, squirrel.Or{
			squirrel.Eq{"owner": params.visibleTo},
			squirrel.Eq{"owner": nil},
		})
	}
	if params.Stage != "" {
		where = append(where, squirrel.Eq{"stage": params.Stage})
	}
	if params.Owner != "" {
		where = append(where, squirrel.Eq{"owner": params.Owner})
	}
	if params.AccountID != "" {
		where = append(where, squirrel.Eq{"account_id": params.AccountID})
	}
	if params.Search != "" {
		where = append(where, squirrel.ILike{
			"name": core.ContainsPattern(params.Search),
		})
	}

	countQuery, countArgs, err := filtered(
		core.SQL.Select("COUNT(*)").From("opportunities"),
		where,
	).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count opportunities: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count opportunities: %w", err)
	}

	query, args, err := filtered(
		core.SQL.Select(opportunityColumns).From("opportunities"),
		where,
	).
		OrderBy("updated_at DESC").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list opportunities: %w", err)
	}

	var opps []Opportunity
	if err := r.db.SelectContext(ctx, &opps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list opportunities: %w", err)
	}

	return opps, total, nil
}

func (r *repository) ListAll(ctx context.Context) ([]Opportunity, error) {
	query := `SELECT ` + opportunityColumns + `
		FROM opportunities
		ORDER BY created_at`

	var opps []Opportunity
	if err := r.db.SelectContext(ctx, &opps, query); err != nil {
		return nil, fmt.Errorf("list all opportunities: %w", err)
	}

	return opps, nil
}

// Update locks the row, hands it to apply and writes the result back. The
// decision apply makes is therefore taken against the row that is stored.
func (r *repository) Update(
	ctx context.Context,
	id string,
	apply ApplyFunc,
) (*Opportunity, error) {
	var updated *Opportunity

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		o, err := getOpportunity(ctx, tx, id, true)
		if err != nil {
			return err
		}

		change, err := apply(o)
		if err != nil {
			return err
		}

		query, args, err := core.SQL.
			Update("opportunities").
			SetMap(map[string]any{
				"name":             o.Name,
				"account_id":       o.AccountID,
				"owner":            o.Owner,
				"stage":            o.Stage,
				"revenue":          o.Revenue,
				"probability":      o.Probability,
				"fields":           o.Fields,
				"stage_changed_at": o.StageChangedAt,
				"closed_at":        o.ClosedAt,
				"updated_at":       squirrel.Expr("NOW()"),
			}).
			Where(squirrel.Eq{"id": o.ID}).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build update opportunity: %w", err)
		}

		if err := tx.GetContext(ctx, &o.UpdatedAt, query, args...); err != nil {
			return fmt.Errorf("update opportunity: %w", mapWriteError(err))
		}

		if change != nil {
			if err := insertStageChange(ctx, tx, change); err != nil {
				return err
			}
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func insertStageChange(ctx context.Context, tx *sqlx.Tx, c *StageChange) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO opportunity_stage_history
			(id, opportunity_id, from_stage, to_stage, moved_by, fields, moved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.ExecContext(ctx, query,
		c.ID,
		c.OpportunityID,
		c.FromStage,
		c.ToStage,
		c.MovedBy,
		c.Fields,
		c.MovedAt,
	)
	if err != nil {
		return fmt.Errorf("record stage change: %w", err)
	}

	return nil
}

func (r *repository) Delete(
	ctx context.Context,
	id string,
	check func(o *Opportunity) error,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		o, err := getOpportunity(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if err := check(o); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM opportunities WHERE id = $1`, o.ID,
		); err != nil {
			return fmt.Errorf("delete opportunity: %w", err)
		}

		return nil
	})
}

func (r *repository) History(
	ctx context.Context,
	id string,
) ([]StageChange, error) {
	query := `
		SELECT id, opportunity_id, from_stage, to_stage, moved_by, fields, moved_at
		FROM opportunity_stage_history
		WHERE opportunity_id = $1
		ORDER BY moved_at DESC`

	var changes []StageChange
	if err := r.db.SelectContext(ctx, &changes, query, id); err != nil {
		return nil, fmt.Errorf("stage history: %w", err)
	}

	return changes, nil
}

func filtered(b squirrel.SelectBuilder, where squirrel.And) squirrel.SelectBuilder {
	if len(where) == 0 {
		return b
	}
	return b.Where(where)
}

func mapWriteError(err error) error {
	if core.IsForeignKeyViolation(err) {
		return fmt.Errorf("unknown account: %w", core.ErrInvalidInput)
	}
	return err
}

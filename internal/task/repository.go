// AngelaMos | 2026
// repository.go

package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, params ListParams) ([]Task, int, error)
	ListOverdue(ctx context.Context, before time.Time) ([]Task, error)
	Update(ctx context.Context, id string, apply func(t *Task) error) (*Task, error)
	Delete(ctx context.Context, id string, check func(t *Task) error) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const taskColumns = `id, subject, due_date, owner, priority, status, notes,
	opportunity_id, account_id, completed_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, t *Task) error {
	query, args, err := core.SQL.
		Insert("tasks").
		Columns(
			"id", "subject", "due_date", "owner", "priority", "status",
			"notes", "opportunity_id", "account_id", "completed_at",
		).
		Values(
			t.ID, t.Subject, t.DueDate, t.Owner, t.Priority, t.Status,
			t.Notes, t.OpportunityID, t.AccountID, t.CompletedAt,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create task: %w", err)
	}

	if err := r.db.GetContext(ctx, t, query, args...); err != nil {
		return fmt.Errorf("create task: %w", mapWriteError(err))
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Task, error) {
	return getTask(ctx, r.db, id, false)
}

func getTask(ctx context.Context, db core.DBTX, id string, lock bool) (*Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get task: %w", core.ErrNotFound)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var t Task
	err := db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	return &t, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Task, int, error) {
	params.Normalize()

	where := squirrel.And{}

	if params.visibleTo != "" {
		where = append(where, squirrel.Or{
			squirrel.Eq{"owner": params.visibleTo},
			squirrel.Eq{"owner": nil},
		})
	}
	if params.Owner != "" {
		where = append(where, squirrel.Eq{"owner": params.Owner})
	}
	if params.OpportunityID != "" {
		where = append(where, squirrel.Eq{"opportunity_id": params.OpportunityID})
	}
	if params.AccountID != "" {
		where = append(where, squirrel.Eq{"account_id": params.AccountID})
	}
	if params.pipelineOnly {
		where = append(where, squirrel.NotEq{"opportunity_id": nil})
	}
	if params.openOnly {
		where = append(where, squirrel.NotEq{"status": StatusCompleted})
	}
	if params.dueFrom != nil {
		where = append(where, squirrel.GtOrEq{"due_date": *params.dueFrom})
	}
	if params.dueBefore != nil {
		where = append(where, squirrel.Lt{"due_date": *params.dueBefore})
	}

	count := core.SQL.Select("COUNT(*)").From("tasks")
	list := core.SQL.Select(taskColumns).From("tasks")
	if len(where) > 0 {
		count = count.Where(where)
		list = list.Where(where)
	}

	countQuery, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count tasks: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query, args, err := list.
		OrderBy("due_date ASC NULLS LAST", "created_at").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list tasks: %w", err)
	}

	var tasks []Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, total, nil
}

// ListOverdue returns every open task due strictly before the cutoff.
func (r *repository) ListOverdue(ctx context.Context, before time.Time) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status <> $1 AND due_date < $2
		ORDER BY due_date`

	var tasks []Task
	if err := r.db.SelectContext(ctx, &tasks, query, StatusCompleted, before); err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}

	return tasks, nil
}

// Update locks the row and lets apply authorize and mutate it before the
// write, so an owner change committed concurrently is seen by the check.
func (r *repository) Update(
	ctx context.Context,
	id string,
	apply func(t *Task) error,
) (*Task, error) {
	var updated *Task

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		t, err := getTask(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if err := apply(t); err != nil {
			return err
		}

		query, args, err := core.SQL.
			Update("tasks").
			SetMap(map[string]any{
				"subject":        t.Subject,
				"due_date":       t.DueDate,
				"owner":          t.Owner,
				"priority":       t.Priority,
				"status":         t.Status,
				"notes":          t.Notes,
				"opportunity_id": t.OpportunityID,
				"account_id":     t.AccountID,
				"completed_at":   t.CompletedAt,
				"updated_at":     squirrel.Expr("NOW()"),
			}).
			Where(squirrel.Eq{"id": t.ID}).
			Suffix("RETURNING updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build update task: %w", err)
		}

		if err := tx.GetContext(ctx, &t.UpdatedAt, query, args...); err != nil {
			return fmt.Errorf("update task: %w", mapWriteError(err))
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *repository) Delete(
	ctx context.Context,
	id string,
	check func(t *Task) error,
) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		t, err := getTask(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if err := check(t); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tasks WHERE id = $1`, t.ID,
		); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}

		return nil
	})
}

func mapWriteError(err error) error {
	if core.IsForeignKeyViolation(err) {
		return fmt.Errorf("unknown linked record: %w", core.ErrInvalidInput)
	}
	return err
}

// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

// Overview is a point-in-time count of what the CRM holds.
type Overview struct {
	UsersByRole  map[string]int `json:"users_by_role"`
	DealsByStage map[string]int `json:"deals_by_stage"`
	Accounts     int            `json:"accounts"`
	Contacts     int            `json:"contacts"`
	OpenTasks    int            `json:"open_tasks"`
}

type Repository interface {
	Overview(ctx context.Context) (*Overview, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

type bucket struct {
	Key string `db:"key"`
	N   int    `db:"n"`
}

func (r *repository) Overview(ctx context.Context) (*Overview, error) {
	users, err := r.grouped(ctx, "users", "role", squirrel.Eq{"deleted_at": nil})
	if err != nil {
		return nil, err
	}

	deals, err := r.grouped(ctx, "opportunities", "stage", nil)
	if err != nil {
		return nil, err
	}

	out := &Overview{UsersByRole: users, DealsByStage: deals}

	query := `SELECT
		(SELECT COUNT(*) FROM accounts) AS accounts,
		(SELECT COUNT(*) FROM contacts) AS contacts,
		(SELECT COUNT(*) FROM tasks WHERE status <> 'Completed') AS open_tasks`

	var totals struct {
		Accounts  int `db:"accounts"`
		Contacts  int `db:"contacts"`
		OpenTasks int `db:"open_tasks"`
	}
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	out.Accounts = totals.Accounts
	out.Contacts = totals.Contacts
	out.OpenTasks = totals.OpenTasks
	return out, nil
}

func (r *repository) grouped(
	ctx context.Context,
	table, column string,
	where squirrel.Sqlizer,
) (map[string]int, error) {
	q := core.SQL.
		Select(column+" AS key", "COUNT(*) AS n").
		From(table).
		GroupBy(column)
	if where != nil {
		q = q.Where(where)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s count: %w", table, err)
	}

	var rows []bucket
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", table, column, err)
	}

	out := make(map[string]int, len(rows))
	for _, b := range rows {
		out[b.Key] = b.N
	}
	return out, nil
}

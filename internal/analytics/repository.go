// AngelaMos | 2026
// repository.go

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

// DealRow is a deal joined with the account fields the reports group by.
type DealRow struct {
	ID              string          `db:"id"`
	Name            string          `db:"name"`
	Owner           *string         `db:"owner"`
	Stage           policy.Stage    `db:"stage"`
	Revenue         decimal.Decimal `db:"revenue"`
	Probability     decimal.Decimal `db:"probability"`
	LeadSource      *string         `db:"lead_source"`
	ProductInterest *string         `db:"product_interest"`
}

type TaskRow struct {
	ID       string    `db:"id"`
	Subject  string    `db:"subject"`
	Owner    *string   `db:"owner"`
	Priority string    `db:"priority"`
	DueDate  time.Time `db:"due_date"`
}

type Repository interface {
	Deals(ctx context.Context) ([]DealRow, error)
	OpenTasksDueBefore(ctx context.Context, before time.Time) ([]TaskRow, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Deals(ctx context.Context) ([]DealRow, error) {
	query := `SELECT o.id, o.name, o.owner, o.stage, o.revenue, o.probability,
		a.lead_source, a.product_interest
		FROM opportunities o
		LEFT JOIN accounts a ON a.id = o.account_id`

	var rows []DealRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load deal rows: %w", err)
	}
	return rows, nil
}

func (r *repository) OpenTasksDueBefore(
	ctx context.Context,
	before time.Time,
) ([]TaskRow, error) {
	query := `SELECT id, subject, owner, priority, due_date FROM tasks
		WHERE status <> 'Completed' AND due_date < $1
		ORDER BY due_date`

	var rows []TaskRow
	if err := r.db.SelectContext(ctx, &rows, query, before); err != nil {
		return nil, fmt.Errorf("load task rows: %w", err)
	}
	return rows, nil
}

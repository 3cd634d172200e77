// AngelaMos | 2026
// entity.go

package task

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"

	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

type Task struct {
	ID            string     `db:"id"`
	Subject       string     `db:"subject"`
	DueDate       *time.Time `db:"due_date"`
	Owner         *string    `db:"owner"`
	Priority      string     `db:"priority"`
	Status        string     `db:"status"`
	Notes         string     `db:"notes"`
	OpportunityID *string    `db:"opportunity_id"`
	AccountID     *string    `db:"account_id"`
	CompletedAt   *time.Time `db:"completed_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (t *Task) OwnerName() string {
	if t.Owner == nil {
		return ""
	}
	return *t.Owner
}

func (t *Task) Entity() policy.Entity {
	return policy.TaskEntity(t.OwnerName())
}

func (t *Task) IsOpen() bool {
	return t.Status != StatusCompleted
}

// DaysOverdue counts whole calendar days between the due date and now.
// Tasks due today or later, undated tasks and completed tasks are never
// overdue.
func (t *Task) DaysOverdue(now time.Time) int {
	if !t.IsOpen() || t.DueDate == nil {
		return 0
	}
	due := StartOfDay(*t.DueDate)
	today := StartOfDay(now)
	if !due.Before(today) {
		return 0
	}
	return int(today.Sub(due).Hours() / 24)
}

func StartOfDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AngelaMos | 2026
// dto.go

package task

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

const (
	ViewAll      = "all"
	ViewOverdue  = "overdue"
	ViewDaily    = "daily"
	ViewPipeline = "pipeline"
)

type CreateTaskRequest struct {
	Subject       string     `json:"subject"                  validate:"required,min=1,max=300"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Owner         *string    `json:"owner,omitempty"          validate:"omitempty,max=100"`
	Priority      string     `json:"priority,omitempty"       validate:"omitempty,oneof=Low Medium High"`
	Status        string     `json:"status,omitempty"         validate:"omitempty,oneof='Pending' 'In Progress' 'Completed'"`
	Notes         string     `json:"notes,omitempty"          validate:"max=5000"`
	OpportunityID *string    `json:"opportunity_id,omitempty" validate:"omitempty,uuid"`
	AccountID     *string    `json:"account_id,omitempty"     validate:"omitempty,uuid"`
}

type UpdateTaskRequest struct {
	Subject       *string    `json:"subject,omitempty"        validate:"omitempty,min=1,max=300"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Owner         *string    `json:"owner,omitempty"          validate:"omitempty,max=100"`
	Priority      *string    `json:"priority,omitempty"       validate:"omitempty,oneof=Low Medium High"`
	Status        *string    `json:"status,omitempty"         validate:"omitempty,oneof='Pending' 'In Progress' 'Completed'"`
	Notes         *string    `json:"notes,omitempty"          validate:"omitempty,max=5000"`
	OpportunityID *string    `json:"opportunity_id,omitempty" validate:"omitempty,uuid"`
	AccountID     *string    `json:"account_id,omitempty"     validate:"omitempty,uuid"`
}

type TaskResponse struct {
	ID            string     `json:"id"`
	Subject       string     `json:"subject"`
	DueDate       *time.Time `json:"due_date"`
	Owner         *string    `json:"owner"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes"`
	OpportunityID *string    `json:"opportunity_id"`
	AccountID     *string    `json:"account_id"`
	DaysOverdue   int        `json:"days_overdue"`
	CanEdit       bool       `json:"can_edit"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type ListParams struct {
	Page          int
	PageSize      int
	View          string
	Owner         string
	OpportunityID string
	AccountID     string

	visibleTo    string
	openOnly     bool
	pipelineOnly bool
	dueFrom      *time.Time
	dueBefore    *time.Time
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToTaskResponse(t *Task, u policy.User, now time.Time) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		Subject:       t.Subject,
		DueDate:       t.DueDate,
		Owner:         t.Owner,
		Priority:      t.Priority,
		Status:        t.Status,
		Notes:         t.Notes,
		OpportunityID: t.OpportunityID,
		AccountID:     t.AccountID,
		DaysOverdue:   t.DaysOverdue(now),
		CanEdit:       policy.CanEdit(u, t.Entity()),
		CompletedAt:   t.CompletedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func ToTaskResponseList(tasks []Task, u policy.User, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, ToTaskResponse(&tasks[i], u, now))
	}
	return out
}

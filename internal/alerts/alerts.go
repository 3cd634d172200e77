// AngelaMos | 2026
// alerts.go

package alerts

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

const (
	TypeOverdueTask  = "overdue_task"
	TypeOngoingIssue = "ongoing_issue"
	TypeStagnation   = "stagnation"
)

type TaskAlert struct {
	TaskID      string    `json:"task_id"`
	Subject     string    `json:"subject"`
	Owner       string    `json:"owner"`
	Priority    string    `json:"priority"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

func (a TaskAlert) entity() policy.Entity {
	return policy.TaskEntity(a.Owner)
}

type StagnationAlert struct {
	OpportunityID   string       `json:"opportunity_id"`
	Name            string       `json:"name"`
	Owner           string       `json:"owner"`
	Stage           policy.Stage `json:"stage"`
	StageLabel      string       `json:"stage_label"`
	DaysSinceUpdate int          `json:"days_since_update"`
}

func (a StagnationAlert) entity() policy.Entity {
	return policy.OpportunityEntity(a.Owner, a.Stage)
}

// Snapshot is the cached alert set. Overdue tasks and ongoing issues are
// disjoint: a task past the escalation window only appears as an issue.
type Snapshot struct {
	GeneratedAt      time.Time         `json:"generated_at"`
	OverdueTasks     []TaskAlert       `json:"overdue_tasks"`
	OngoingIssues    []TaskAlert       `json:"ongoing_issues"`
	StagnationAlerts []StagnationAlert `json:"stagnation_alerts"`
	Total            int               `json:"total"`
}

func (s *Snapshot) count() {
	s.Total = len(s.OverdueTasks) + len(s.OngoingIssues) + len(s.StagnationAlerts)
}

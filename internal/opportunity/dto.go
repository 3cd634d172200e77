// AngelaMos | 2026
// dto.go

package opportunity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type CreateOpportunityRequest struct {
	Name      string           `json:"name"                 validate:"required,min=1,max=200"`
	AccountID *string          `json:"account_id,omitempty" validate:"omitempty,uuid"`
	Owner     *string          `json:"owner,omitempty"      validate:"omitempty,max=100"`
	Revenue   *decimal.Decimal `json:"revenue,omitempty"`
	Fields    map[string]any   `json:"fields,omitempty"`
}

// UpdateOpportunityRequest edits everything except the stage. An empty
// owner string unassigns the deal.
type UpdateOpportunityRequest struct {
	Name        *string          `json:"name,omitempty"        validate:"omitempty,min=1,max=200"`
	AccountID   *string          `json:"account_id,omitempty"  validate:"omitempty,uuid"`
	Owner       *string          `json:"owner,omitempty"       validate:"omitempty,max=100"`
	Revenue     *decimal.Decimal `json:"revenue,omitempty"`
	Probability *decimal.Decimal `json:"probability,omitempty"`
	Fields      map[string]any   `json:"fields,omitempty"`
}

type MoveStageRequest struct {
	Stage  string         `json:"stage"  validate:"required"`
	Fields map[string]any `json:"fields"`
}

type OpportunityResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	AccountID      *string           `json:"account_id"`
	Owner          *string           `json:"owner"`
	Stage          string            `json:"stage"`
	StageLabel     string            `json:"stage_label"`
	Revenue        decimal.Decimal   `json:"revenue"`
	Probability    decimal.Decimal   `json:"probability"`
	Forecast       decimal.Decimal   `json:"forecast"`
	Fields         map[string]string `json:"fields"`
	CanEdit        bool              `json:"can_edit"`
	StageChangedAt time.Time         `json:"stage_changed_at"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type StageChangeResponse struct {
	ID        string            `json:"id"`
	FromStage string            `json:"from_stage"`
	ToStage   string            `json:"to_stage"`
	MovedBy   string            `json:"moved_by"`
	Fields    map[string]string `json:"fields"`
	MovedAt   time.Time         `json:"moved_at"`
}

type StageOption struct {
	Stage string `json:"stage"`
	Label string `json:"label"`
}

type TargetsResponse struct {
	Current StageOption   `json:"current"`
	Targets []StageOption `json:"targets"`
}

type StageMeta struct {
	Stage    string      `json:"stage"`
	Label    string      `json:"label"`
	Terminal bool        `json:"terminal"`
	InScope  bool        `json:"in_scope"`
	Fields   []FieldSpec `json:"fields"`
}

// MetaResponse describes the pipeline as seen by the caller.
type MetaResponse struct {
	Role        string              `json:"role"`
	RoleLabel   string              `json:"role_label"`
	Permissions []policy.Permission `json:"permissions"`
	Stages      []StageMeta         `json:"stages"`
}

type ListParams struct {
	Page      int
	PageSize  int
	Stage     string
	Owner     string
	AccountID string
	Search    string

	// visibleTo restricts rows to those owned by this name or unassigned.
	visibleTo string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func toStageOption(st policy.Stage) StageOption {
	return StageOption{Stage: st.String(), Label: st.DisplayName()}
}

func ToOpportunityResponse(o *Opportunity, u policy.User) OpportunityResponse {
	fields := map[string]string(o.Fields)
	if fields == nil {
		fields = map[string]string{}
	}

	return OpportunityResponse{
		ID:             o.ID,
		Name:           o.Name,
		AccountID:      o.AccountID,
		Owner:          o.Owner,
		Stage:          o.Stage.String(),
		StageLabel:     o.Stage.DisplayName(),
		Revenue:        o.Revenue,
		Probability:    o.Probability,
		Forecast:       o.Forecast().Round(2),
		Fields:         fields,
		CanEdit:        policy.CanEdit(u, o.Entity()),
		StageChangedAt: o.StageChangedAt,
		ClosedAt:       o.ClosedAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func ToOpportunityResponseList(
	opps []Opportunity,
	u policy.User,
) []OpportunityResponse {
	out := make([]OpportunityResponse, 0, len(opps))
	for i := range opps {
		out = append(out, ToOpportunityResponse(&opps[i], u))
	}
	return out
}

func toStageChangeResponses(changes []StageChange) []StageChangeResponse {
	out := make([]StageChangeResponse, 0, len(changes))
	for _, c := range changes {
		fields := map[string]string(c.Fields)
		if fields == nil {
			fields = map[string]string{}
		}
		out = append(out, StageChangeResponse{
			ID:        c.ID,
			FromStage: c.FromStage.String(),
			ToStage:   c.ToStage.String(),
			MovedBy:   c.MovedBy,
			Fields:    fields,
			MovedAt:   c.MovedAt,
		})
	}
	return out
}

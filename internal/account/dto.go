// AngelaMos | 2026
// dto.go

package account

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type CreateAccountRequest struct {
	CompanyName     string  `json:"company_name"               validate:"required,min=1,max=200"`
	Territory       string  `json:"territory,omitempty"        validate:"omitempty,oneof=North South East West"`
	ProductInterest string  `json:"product_interest,omitempty" validate:"max=200"`
	LeadSource      string  `json:"lead_source,omitempty"      validate:"omitempty,oneof='Website' 'Referral' 'Trade Show' 'Cold Call' 'Partner'"`
	Notes           string  `json:"notes,omitempty"            validate:"max=5000"`
	LifecycleStatus string  `json:"lifecycle_status,omitempty" validate:"omitempty,oneof=Prospect Customer Partner Competitor Inactive"`
	Owner           *string `json:"owner,omitempty"            validate:"omitempty,max=100"`
}

type UpdateAccountRequest struct {
	CompanyName     *string `json:"company_name,omitempty"     validate:"omitempty,min=1,max=200"`
	Territory       *string `json:"territory,omitempty"        validate:"omitempty,oneof=North South East West"`
	ProductInterest *string `json:"product_interest,omitempty" validate:"omitempty,max=200"`
	LeadSource      *string `json:"lead_source,omitempty"      validate:"omitempty,oneof='Website' 'Referral' 'Trade Show' 'Cold Call' 'Partner'"`
	Notes           *string `json:"notes,omitempty"            validate:"omitempty,max=5000"`
	LifecycleStatus *string `json:"lifecycle_status,omitempty" validate:"omitempty,oneof=Prospect Customer Partner Competitor Inactive"`
	Owner           *string `json:"owner,omitempty"            validate:"omitempty,max=100"`
}

type AccountResponse struct {
	ID              string    `json:"id"`
	CompanyName     string    `json:"company_name"`
	Territory       string    `json:"territory"`
	ProductInterest string    `json:"product_interest"`
	LeadSource      string    `json:"lead_source"`
	Notes           string    `json:"notes"`
	LifecycleStatus string    `json:"lifecycle_status"`
	Owner           *string   `json:"owner"`
	CanEdit         bool      `json:"can_edit"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ListParams struct {
	Page            int
	PageSize        int
	Search          string
	Territory       string
	LifecycleStatus string
	Owner           string

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

func ToAccountResponse(a *Account, u policy.User) AccountResponse {
	return AccountResponse{
		ID:              a.ID,
		CompanyName:     a.CompanyName,
		Territory:       a.Territory,
		ProductInterest: a.ProductInterest,
		LeadSource:      a.LeadSource,
		Notes:           a.Notes,
		LifecycleStatus: a.LifecycleStatus,
		Owner:           a.Owner,
		CanEdit:         policy.CanEdit(u, a.Entity()),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func ToAccountResponseList(accounts []Account, u policy.User) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, ToAccountResponse(&accounts[i], u))
	}
	return out
}

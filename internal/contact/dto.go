// AngelaMos | 2026
// dto.go

package contact

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type CreateContactRequest struct {
	AccountID        string `json:"account_id"                   validate:"required,uuid"`
	FullName         string `json:"full_name"                    validate:"required,min=1,max=200"`
	Email            string `json:"email,omitempty"              validate:"omitempty,email,max=255"`
	Phone            string `json:"phone,omitempty"              validate:"max=50"`
	BuyingRole       string `json:"buying_role,omitempty"        validate:"max=100"`
	IsBillingContact bool   `json:"is_billing_contact,omitempty"`
	Notes            string `json:"notes,omitempty"              validate:"max=5000"`
}

type UpdateContactRequest struct {
	AccountID        *string `json:"account_id,omitempty"         validate:"omitempty,uuid"`
	FullName         *string `json:"full_name,omitempty"          validate:"omitempty,min=1,max=200"`
	Email            *string `json:"email,omitempty"              validate:"omitempty,email,max=255"`
	Phone            *string `json:"phone,omitempty"              validate:"omitempty,max=50"`
	BuyingRole       *string `json:"buying_role,omitempty"        validate:"omitempty,max=100"`
	IsBillingContact *bool   `json:"is_billing_contact,omitempty"`
	Notes            *string `json:"notes,omitempty"              validate:"omitempty,max=5000"`
}

type ContactResponse struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"account_id"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	BuyingRole       string    `json:"buying_role"`
	IsBillingContact bool      `json:"is_billing_contact"`
	Notes            string    `json:"notes"`
	CanEdit          bool      `json:"can_edit"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ListParams struct {
	Page      int
	PageSize  int
	AccountID string
	Search    string
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

func ToContactResponse(c *Contact, u policy.User) ContactResponse {
	return ContactResponse{
		ID:               c.ID,
		AccountID:        c.AccountID,
		FullName:         c.FullName,
		Email:            c.Email,
		Phone:            c.Phone,
		BuyingRole:       c.BuyingRole,
		IsBillingContact: c.IsBillingContact,
		Notes:            c.Notes,
		CanEdit:          policy.CanEdit(u, c.Entity()),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func ToContactResponseList(contacts []Contact, u policy.User) []ContactResponse {
	out := make([]ContactResponse, 0, len(contacts))
	for i := range contacts {
		out = append(out, ToContactResponse(&contacts[i], u))
	}
	return out
}

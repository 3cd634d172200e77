// AngelaMos | 2026
// entity.go

package account

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

const (
	LifecycleProspect   = "Prospect"
	LifecycleCustomer   = "Customer"
	LifecyclePartner    = "Partner"
	LifecycleCompetitor = "Competitor"
	LifecycleInactive   = "Inactive"
)

type Account struct {
	ID              string    `db:"id"`
	CompanyName     string    `db:"company_name"`
	Territory       string    `db:"territory"`
	ProductInterest string    `db:"product_interest"`
	LeadSource      string    `db:"lead_source"`
	Notes           string    `db:"notes"`
	LifecycleStatus string    `db:"lifecycle_status"`
	Owner           *string   `db:"owner"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (a *Account) OwnerName() string {
	if a.Owner == nil {
		return ""
	}
	return *a.Owner
}

func (a *Account) Entity() policy.Entity {
	return policy.AccountEntity(a.OwnerName())
}

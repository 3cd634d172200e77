// AngelaMos | 2026
// entity.go

package contact

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

// Contact always belongs to an account. Contacts carry no owner; who may
// change them is decided by role alone.
type Contact struct {
	ID               string    `db:"id"`
	AccountID        string    `db:"account_id"`
	FullName         string    `db:"full_name"`
	Email            string    `db:"email"`
	Phone            string    `db:"phone"`
	BuyingRole       string    `db:"buying_role"`
	IsBillingContact bool      `db:"is_billing_contact"`
	Notes            string    `db:"notes"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (c *Contact) Entity() policy.Entity {
	return policy.ContactEntity()
}

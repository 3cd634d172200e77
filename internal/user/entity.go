// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type User struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	PasswordHash string      `db:"password_hash"`
	Name         string      `db:"name"`
	Role         policy.Role `db:"role"`
	TokenVersion int         `db:"token_version"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	DeletedAt    *time.Time  `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// CanAdminister reports whether the user may manage other accounts.
func (u *User) CanAdminister() bool {
	return policy.HasPermission(u.Role, policy.PermEditAll)
}

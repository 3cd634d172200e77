// AngelaMos | 2026
// role.go

package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownRole  = errors.New("unknown role")
	ErrUnknownStage = errors.New("unknown stage")
)

type Role string

const (
	RoleSalesRep       Role = "SalesRep"
	RoleDataSpecialist Role = "DataSpecialist"
	RoleOpsManagement  Role = "OpsManagement"
	RoleExec           Role = "Exec"
)

var roles = []Role{
	RoleSalesRep,
	RoleDataSpecialist,
	RoleOpsManagement,
	RoleExec,
}

var roleDisplayNames = map[Role]string{
	RoleSalesRep:       "Sales Rep",
	RoleDataSpecialist: "Data Specialist",
	RoleOpsManagement:  "Ops/Management",
	RoleExec:           "Exec",
}

// Roles returns every known role in a stable order.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ParseRole accepts either the identifier ("OpsManagement") or the
// display name ("Ops/Management"). Anything else is rejected.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range roles {
		if s == string(r) || s == roleDisplayNames[r] {
			return r, nil
		}
	}
	return "", fmt.Errorf("parse role %q: %w", s, ErrUnknownRole)
}

func (r Role) Valid() bool {
	_, ok := roleDisplayNames[r]
	return ok
}

func (r Role) DisplayName() string {
	if name, ok := roleDisplayNames[r]; ok {
		return name
	}
	return string(r)
}

func (r Role) String() string {
	return string(r)
}

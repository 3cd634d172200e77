// AngelaMos | 2026
// permission.go

package policy

import (
	"sort"
)

type Permission string

const (
	PermViewAll             Permission = "view_all"
	PermViewOwn             Permission = "view_own"
	PermEditAll             Permission = "edit_all"
	PermEditOwn             Permission = "edit_own"
	PermEditContacts        Permission = "edit_contacts"
	PermEditAccounts        Permission = "edit_accounts"
	PermEditLeads           Permission = "edit_leads"
	PermManageTasks         Permission = "manage_tasks"
	PermExportData          Permission = "export_data"
	PermViewAnalytics       Permission = "view_analytics"
	PermCreateOpportunities Permission = "create_opportunities"
	PermOverrideDeals       Permission = "override_deals"
	PermMoveDeals           Permission = "move_deals"
	PermMoveToNewLead       Permission = "move_to_new_lead"
	PermMoveToContactMade   Permission = "move_to_contact_made"
)

// rolePermissions is the authoritative grant table. It is read-only after
// package init; callers only ever receive copies.
var rolePermissions = map[Role][]Permission{
	RoleExec: {
		PermViewAll,
		PermViewAnalytics,
		PermExportData,
	},
	RoleOpsManagement: {
		PermViewAll,
		PermEditAll,
		PermOverrideDeals,
		PermViewAnalytics,
		PermManageTasks,
	},
	RoleDataSpecialist: {
		PermViewAll,
		PermEditContacts,
		PermEditAccounts,
		PermMoveToNewLead,
		PermMoveToContactMade,
	},
	RoleSalesRep: {
		PermViewOwn,
		PermEditOwn,
		PermCreateOpportunities,
		PermMoveDeals,
		PermEditContacts,
		PermEditAccounts,
		PermEditLeads,
	},
}

// AllPermissions lists the whole vocabulary.
func AllPermissions() []Permission {
	return []Permission{
		PermViewAll,
		PermViewOwn,
		PermEditAll,
		PermEditOwn,
		PermEditContacts,
		PermEditAccounts,
		PermEditLeads,
		PermManageTasks,
		PermExportData,
		PermViewAnalytics,
		PermCreateOpportunities,
		PermOverrideDeals,
		PermMoveDeals,
		PermMoveToNewLead,
		PermMoveToContactMade,
	}
}

type PermissionSet map[Permission]struct{}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func (s PermissionSet) HasAny(ps ...Permission) bool {
	for _, p := range ps {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Sorted returns the members ordered by name, for stable output.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionsOf returns a fresh set for role. Unknown roles get an empty set.
func PermissionsOf(role Role) PermissionSet {
	grants := rolePermissions[role]
	set := make(PermissionSet, len(grants))
	for _, p := range grants {
		set[p] = struct{}{}
	}
	return set
}

func HasPermission(role Role, p Permission) bool {
	for _, granted := range rolePermissions[role] {
		if granted == p {
			return true
		}
	}
	return false
}

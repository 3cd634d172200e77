// AngelaMos | 2026
// scope.go

package policy

// stageGrants maps the narrow move permissions to the single stage each
// one unlocks. Holders of a broad move permission may target any stage.
var stageGrants = map[Permission]Stage{
	PermMoveToNewLead:     StageNewLead,
	PermMoveToContactMade: StageContactMade,
}

var broadMovePermissions = []Permission{
	PermEditAll,
	PermOverrideDeals,
	PermMoveDeals,
}

// movePermissions is every grant that lets a role move a deal at all.
var movePermissions = []Permission{
	PermEditAll,
	PermOverrideDeals,
	PermMoveDeals,
	PermMoveToNewLead,
	PermMoveToContactMade,
}

// InRoleScope reports whether role may move a deal into target, ignoring
// the structural transition rules.
func InRoleScope(role Role, target Stage) bool {
	if !target.Valid() {
		return false
	}

	perms := PermissionsOf(role)
	if perms.HasAny(broadMovePermissions...) {
		return true
	}

	for p, st := range stageGrants {
		if st == target && perms.Has(p) {
			return true
		}
	}
	return false
}

// AllowedTargets is the role scope intersected with the legal transitions
// out of current, in canonical stage order. Exec always gets nothing.
func AllowedTargets(role Role, current Stage) []Stage {
	out := []Stage{}
	for _, st := range LegalTargets(current) {
		if InRoleScope(role, st) {
			out = append(out, st)
		}
	}
	return out
}

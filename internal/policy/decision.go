// AngelaMos | 2026
// decision.go

package policy

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionViewAll           Action = "view_all"
	ActionViewAnalytics     Action = "view_analytics"
	ActionExportData        Action = "export_data"
	ActionCreateOpportunity Action = "create_opportunity"
	ActionManageTasks       Action = "manage_tasks"

	ActionView      Action = "view"
	ActionCreate    Action = "create"
	ActionEdit      Action = "edit"
	ActionDelete    Action = "delete"
	ActionMoveStage Action = "move_stage"
)

// permissionActions are answered by a plain membership test.
var permissionActions = map[Action]Permission{
	ActionViewAll:           PermViewAll,
	ActionViewAnalytics:     PermViewAnalytics,
	ActionExportData:        PermExportData,
	ActionCreateOpportunity: PermCreateOpportunities,
	ActionManageTasks:       PermManageTasks,
}

type Denial string

const (
	DenialNone              Denial = ""
	DenialPermission        Denial = "permission_denied"
	DenialNotOwner          Denial = "not_owner"
	DenialIllegalTransition Denial = "illegal_transition"
)

// Decision is the outcome of an access check. A denial is ordinary data;
// Reason is advisory text for display.
type Decision struct {
	Allowed bool
	Denial  Denial
	Reason  string
	Code    TransitionCode
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(kind Denial, reason string) Decision {
	return Decision{Denial: kind, Reason: reason}
}

func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Decision: d}
}

type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Decision.Denial, e.Decision.Reason)
}

// IsDenied unwraps err into the decision that produced it.
func IsDenied(err error) (Decision, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de.Decision, true
	}
	return Decision{}, false
}

// writeGrants lists the role-level permissions that open each entity kind
// for mutation. The entity predicate is applied on top.
var writeGrants = map[EntityKind][]Permission{
	KindOpportunity: {
		PermEditAll,
		PermEditOwn,
		PermMoveToNewLead,
		PermMoveToContactMade,
	},
	KindAccount: {PermEditAll, PermEditAccounts},
	KindContact: {PermEditAll, PermEditContacts},
	KindTask: {
		PermEditAll,
		PermEditOwn,
		// contact and account editors may touch tasks; CanEdit still scopes them
		PermEditContacts,
		PermEditAccounts,
		PermManageTasks,
	},
}

// Decide answers whether user may perform action. Permission-style
// actions ignore entity; entity actions deny when it is nil.
func Decide(u User, action Action, entity *Entity) Decision {
	if perm, ok := permissionActions[action]; ok {
		if HasPermission(u.Role, perm) {
			return allow()
		}
		return deny(DenialPermission, permissionReason(action))
	}

	if entity == nil {
		return deny(DenialPermission, "no record given for "+string(action))
	}
	e := *entity

	switch action {
	case ActionView:
		return decideView(u, e)
	case ActionEdit, ActionDelete:
		return decideWrite(u, action, e)
	case ActionCreate:
		return decideCreate(u, e)
	case ActionMoveStage:
		return decideMoveGate(u, e)
	}

	return deny(DenialPermission, "unknown action "+string(action))
}

func CanPerform(u User, action Action, entity *Entity) bool {
	return Decide(u, action, entity).Allowed
}

// AuthorizeMove gates moving an opportunity into target: role capability,
// edit eligibility, structural legality and role scope, in that order.
func AuthorizeMove(u User, e Entity, target Stage) Decision {
	if d := decideMoveGate(u, e); !d.Allowed {
		return d
	}

	if err := ValidateTransition(e.Stage, target); err != nil {
		var te *TransitionError
		if errors.As(err, &te) {
			d := deny(DenialIllegalTransition, te.Message)
			d.Code = te.Code
			return d
		}
		return deny(DenialIllegalTransition, err.Error())
	}

	if !InRoleScope(u.Role, target) {
		d := deny(DenialIllegalTransition, msgOutsideScope)
		d.Code = TransitionOutsideScope
		return d
	}

	return allow()
}

func decideView(u User, e Entity) Decision {
	if CanView(u, e) {
		return allow()
	}
	perms := PermissionsOf(u.Role)
	if perms.HasAny(PermViewAll, PermViewOwn) {
		return deny(DenialNotOwner, "You can only view records you own")
	}
	return deny(DenialPermission, "Your role cannot view records")
}

func decideWrite(u User, action Action, e Entity) Decision {
	grants, ok := writeGrants[e.Kind]
	if !ok || !PermissionsOf(u.Role).HasAny(grants...) {
		return deny(
			DenialPermission,
			fmt.Sprintf("Your role cannot %s %s", action, e.Kind.plural()),
		)
	}
	if !CanEdit(u, e) {
		return deny(DenialNotOwner, ownershipReason(u, e))
	}
	return allow()
}

func decideCreate(u User, e Entity) Decision {
	if e.Kind == KindOpportunity {
		if !HasPermission(u.Role, PermCreateOpportunities) {
			return deny(
				DenialPermission,
				permissionReason(ActionCreateOpportunity),
			)
		}
		if e.Stage != StageNewLead {
			return deny(
				DenialIllegalTransition,
				"New deals must start in "+StageNewLead.DisplayName(),
			)
		}
	}
	return decideWrite(u, ActionCreate, e)
}

func decideMoveGate(u User, e Entity) Decision {
	if e.Kind != KindOpportunity {
		return deny(DenialPermission, "Only deals have stages")
	}
	if !PermissionsOf(u.Role).HasAny(movePermissions...) {
		return deny(DenialPermission, "Your role cannot move deals")
	}
	if !CanEdit(u, e) {
		return deny(DenialNotOwner, ownershipReason(u, e))
	}
	return allow()
}

func ownershipReason(u User, e Entity) string {
	if e.Kind == KindOpportunity && u.Role == RoleDataSpecialist {
		return fmt.Sprintf(
			"Data Specialists can only change deals in %s or %s",
			StageNewLead.DisplayName(),
			StageContactMade.DisplayName(),
		)
	}
	return fmt.Sprintf("You can only change %s you own", e.Kind.plural())
}

func permissionReason(action Action) string {
	switch action {
	case ActionViewAnalytics:
		return "Your role cannot view analytics"
	case ActionExportData:
		return "Your role cannot export data"
	case ActionCreateOpportunity:
		return "Your role cannot create opportunities"
	case ActionManageTasks:
		return "Your role cannot manage tasks"
	case ActionViewAll:
		return "Your role cannot view all records"
	}
	return "Permission denied"
}

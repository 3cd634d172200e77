// AngelaMos | 2026
// entity.go

package policy

type EntityKind string

const (
	KindOpportunity EntityKind = "opportunity"
	KindAccount     EntityKind = "account"
	KindContact     EntityKind = "contact"
	KindTask        EntityKind = "task"
)

func (k EntityKind) plural() string {
	if k == KindOpportunity {
		return "opportunities"
	}
	return string(k) + "s"
}

type User struct {
	Name string
	Role Role
}

// Entity is the snapshot the predicates look at. An empty Owner means the
// record is unassigned. Stage is only meaningful for opportunities.
type Entity struct {
	Kind  EntityKind
	Owner string
	Stage Stage
}

func OpportunityEntity(owner string, stage Stage) Entity {
	return Entity{Kind: KindOpportunity, Owner: owner, Stage: stage}
}

func TaskEntity(owner string) Entity {
	return Entity{Kind: KindTask, Owner: owner}
}

func AccountEntity(owner string) Entity {
	return Entity{Kind: KindAccount, Owner: owner}
}

func ContactEntity() Entity {
	return Entity{Kind: KindContact}
}

func (e Entity) Unassigned() bool {
	return e.Owner == ""
}

// OwnedBy treats unassigned records as owned by everyone.
func (e Entity) OwnedBy(name string) bool {
	return e.Unassigned() || (name != "" && e.Owner == name)
}

func specialistHorizon(st Stage) bool {
	return st == StageNewLead || st == StageContactMade
}

// CanEdit is the ownership and edit-eligibility predicate.
func CanEdit(u User, e Entity) bool {
	switch e.Kind {
	case KindOpportunity:
		switch u.Role {
		case RoleOpsManagement:
			return true
		case RoleDataSpecialist:
			return specialistHorizon(e.Stage)
		case RoleSalesRep:
			return e.OwnedBy(u.Name)
		}
	case KindAccount, KindContact:
		switch u.Role {
		case RoleOpsManagement, RoleDataSpecialist, RoleSalesRep:
			return true
		}
	case KindTask:
		switch u.Role {
		case RoleOpsManagement:
			return true
		case RoleSalesRep, RoleDataSpecialist:
			return e.OwnedBy(u.Name)
		}
	}
	return false
}

// CanView decides read visibility. view_all sees everything; view_own
// sees owned or unassigned deals and tasks, plus the accounts and contacts
// the role is allowed to edit.
func CanView(u User, e Entity) bool {
	perms := PermissionsOf(u.Role)
	if perms.Has(PermViewAll) {
		return true
	}
	if !perms.Has(PermViewOwn) {
		return false
	}

	switch e.Kind {
	case KindAccount:
		return perms.Has(PermEditAccounts) || e.OwnedBy(u.Name)
	case KindContact:
		return perms.Has(PermEditContacts)
	case KindOpportunity, KindTask:
		return e.OwnedBy(u.Name)
	}
	return false
}

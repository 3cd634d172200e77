// AngelaMos | 2026
// policy_test.go

package policy

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"SalesRep", RoleSalesRep, false},
		{"Sales Rep", RoleSalesRep, false},
		{"Ops/Management", RoleOpsManagement, false},
		{" DataSpecialist ", RoleDataSpecialist, false},
		{"Exec", RoleExec, false},
		{"admin", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStage(t *testing.T) {
	st, err := ParseStage("Negotiation / Decision")
	require.NoError(t, err)
	assert.Equal(t, StageNegotiationDecision, st)

	st, err = ParseStage("ClosedLost")
	require.NoError(t, err)
	assert.Equal(t, StageClosedLost, st)

	_, err = ParseStage("Archived")
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestPermissionsOf(t *testing.T) {
	assert.ElementsMatch(t,
		[]Permission{PermViewAll, PermViewAnalytics, PermExportData},
		PermissionsOf(RoleExec).Sorted(),
	)
	assert.ElementsMatch(t,
		[]Permission{
			PermViewAll, PermEditAll, PermOverrideDeals,
			PermViewAnalytics, PermManageTasks,
		},
		PermissionsOf(RoleOpsManagement).Sorted(),
	)
	assert.ElementsMatch(t,
		[]Permission{
			PermViewAll, PermEditContacts, PermEditAccounts,
			PermMoveToNewLead, PermMoveToContactMade,
		},
		PermissionsOf(RoleDataSpecialist).Sorted(),
	)
	assert.ElementsMatch(t,
		[]Permission{
			PermViewOwn, PermEditOwn, PermCreateOpportunities, PermMoveDeals,
			PermEditContacts, PermEditAccounts, PermEditLeads,
		},
		PermissionsOf(RoleSalesRep).Sorted(),
	)

	assert.Empty(t, PermissionsOf(Role("Intern")))
	assert.Empty(t, PermissionsOf(""))
}

func TestPermissionsOfReturnsCopy(t *testing.T) {
	set := PermissionsOf(RoleExec)
	set[PermEditAll] = struct{}{}

	assert.False(t, PermissionsOf(RoleExec).Has(PermEditAll))
	assert.False(t, HasPermission(RoleExec, PermEditAll))
}

func TestPermissionActionsFollowTable(t *testing.T) {
	allRoles := append(Roles(), Role("Unknown"))

	for _, role := range allRoles {
		for action, perm := range permissionActions {
			u := User{Name: "alice", Role: role}
			assert.Equal(t,
				HasPermission(role, perm),
				CanPerform(u, action, nil),
				"role=%s action=%s", role, action,
			)
		}
	}
}

func TestValidateTransitionSameStage(t *testing.T) {
	for _, st := range Stages() {
		err := ValidateTransition(st, st)

		var te *TransitionError
		require.True(t, errors.As(err, &te), st)
		assert.Equal(t, TransitionSameStage, te.Code)
		assert.Equal(t, "Deal is already in this stage", te.Message)
	}
}

func TestValidateTransitionTerminal(t *testing.T) {
	assert.NoError(t, ValidateTransition(StageClosedWon, StageClosedLost))
	assert.NoError(t, ValidateTransition(StageClosedLost, StageClosedWon))

	err := ValidateTransition(StageClosedWon, StageProposalSent)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TransitionReactivateClose, te.Code)
	assert.Equal(t, "Cannot reactivate a closed deal", te.Message)

	for _, active := range ActiveStages() {
		assert.Error(t, ValidateTransition(StageClosedLost, active))
		assert.NoError(t, ValidateTransition(active, StageClosedWon), active)
		assert.NoError(t, ValidateTransition(active, StageClosedLost), active)
	}
}

func TestValidateTransitionForward(t *testing.T) {
	assert.NoError(t, ValidateTransition(StageNewLead, StageContactMade))

	err := ValidateTransition(StageNewLead, StageQualifiedOpportunity)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, TransitionSkipStages, te.Code)
	assert.Contains(t, te.Message, "Contact Made")

	var forward []Stage
	for _, st := range ActiveStages() {
		if ValidateTransition(StageNewLead, st) == nil {
			forward = append(forward, st)
		}
	}
	assert.Equal(t, []Stage{StageContactMade}, forward)
}

func TestValidateTransitionBackward(t *testing.T) {
	active := ActiveStages()
	for k, from := range active {
		for _, to := range active[:k] {
			assert.NoError(t, ValidateTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidateTransitionUnknownStage(t *testing.T) {
	err := ValidateTransition(Stage("Archived"), StageNewLead)
	assert.ErrorIs(t, err, ErrUnknownStage)

	err = ValidateTransition(StageNewLead, Stage(""))
	assert.ErrorIs(t, err, ErrUnknownStage)

	assert.Empty(t, AllowedTargets(RoleOpsManagement, Stage("Archived")))
}

func TestAllowedTargets(t *testing.T) {
	for _, st := range Stages() {
		assert.Empty(t, AllowedTargets(RoleExec, st), st)
		assert.Empty(t, AllowedTargets(Role("Unknown"), st), st)
	}

	got := AllowedTargets(RoleDataSpecialist, StageContactMade)
	assert.Equal(t, []Stage{StageNewLead}, got)

	got = AllowedTargets(RoleDataSpecialist, StageNewLead)
	assert.Equal(t, []Stage{StageContactMade}, got)

	for _, st := range Stages() {
		for _, target := range AllowedTargets(RoleDataSpecialist, st) {
			assert.Contains(t,
				[]Stage{StageNewLead, StageContactMade}, target)
		}
	}

	assert.Equal(t,
		[]Stage{StageClosedLost},
		AllowedTargets(RoleOpsManagement, StageClosedWon),
	)
}

func TestCanEditOpportunity(t *testing.T) {
	alice := User{Name: "Alice", Role: RoleSalesRep}

	assert.False(t, CanEdit(alice, OpportunityEntity("Bob", StageNewLead)))
	assert.True(t, CanEdit(alice, OpportunityEntity("", StageNewLead)))
	assert.True(t, CanEdit(alice, OpportunityEntity("Alice", StageNewLead)))

	ds := User{Name: "Dana", Role: RoleDataSpecialist}
	assert.False(t, CanEdit(ds, OpportunityEntity("", StageDiscoveryCompleted)))
	assert.True(t, CanEdit(ds, OpportunityEntity("", StageContactMade)))
	assert.True(t, CanEdit(ds, OpportunityEntity("Bob", StageNewLead)))
	assert.False(t, CanEdit(ds, OpportunityEntity("", StageClosedWon)))

	ops := User{Name: "Olga", Role: RoleOpsManagement}
	assert.True(t, CanEdit(ops, OpportunityEntity("Bob", StageVerbalWin)))
}

func TestCanEditOtherKinds(t *testing.T) {
	tests := []struct {
		name   string
		user   User
		entity Entity
		want   bool
	}{
		{"rep account", User{"Alice", RoleSalesRep}, AccountEntity("Bob"), true},
		{"ds contact", User{"Dana", RoleDataSpecialist}, ContactEntity(), true},
		{"ops contact", User{"Olga", RoleOpsManagement}, ContactEntity(), true},
		{"exec account", User{"Eve", RoleExec}, AccountEntity(""), false},
		{"rep own task", User{"Alice", RoleSalesRep}, TaskEntity("Alice"), true},
		{"rep other task", User{"Alice", RoleSalesRep}, TaskEntity("Bob"), false},
		{"rep open task", User{"Alice", RoleSalesRep}, TaskEntity(""), true},
		{"ds other task", User{"Dana", RoleDataSpecialist}, TaskEntity("Bob"), false},
		{"ops task", User{"Olga", RoleOpsManagement}, TaskEntity("Bob"), true},
		{"exec own task", User{"Eve", RoleExec}, TaskEntity("Eve"), false},
		{"unknown role", User{"X", Role("Intern")}, ContactEntity(), false},
		{"unknown kind", User{"Olga", RoleOpsManagement}, Entity{Kind: "market"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEdit(tt.user, tt.entity))
		})
	}
}

func TestCanView(t *testing.T) {
	alice := User{Name: "Alice", Role: RoleSalesRep}
	assert.True(t, CanView(alice, OpportunityEntity("Alice", StageNewLead)))
	assert.True(t, CanView(alice, OpportunityEntity("", StageNewLead)))
	assert.False(t, CanView(alice, OpportunityEntity("Bob", StageNewLead)))
	assert.True(t, CanView(alice, ContactEntity()))
	assert.True(t, CanView(alice, AccountEntity("Bob")))

	exec := User{Name: "Eve", Role: RoleExec}
	assert.True(t, CanView(exec, OpportunityEntity("Bob", StageNewLead)))
	assert.False(t, CanView(User{Role: "Intern"}, ContactEntity()))
}

func TestDecideEntityActions(t *testing.T) {
	alice := User{Name: "Alice", Role: RoleSalesRep}
	bobsDeal := OpportunityEntity("Bob", StageProposalSent)

	d := Decide(alice, ActionEdit, &bobsDeal)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenialNotOwner, d.Denial)

	exec := User{Name: "Eve", Role: RoleExec}
	d = Decide(exec, ActionDelete, &bobsDeal)
	assert.Equal(t, DenialPermission, d.Denial)

	d = Decide(alice, ActionEdit, nil)
	assert.False(t, d.Allowed)

	newDeal := OpportunityEntity("Alice", StageNewLead)
	assert.True(t, CanPerform(alice, ActionCreate, &newDeal))

	late := OpportunityEntity("Alice", StageProposalSent)
	d = Decide(alice, ActionCreate, &late)
	assert.Equal(t, DenialIllegalTransition, d.Denial)

	ops := User{Name: "Olga", Role: RoleOpsManagement}
	assert.False(t, CanPerform(ops, ActionCreate, &newDeal))

	ds := User{Name: "Dana", Role: RoleDataSpecialist}
	ownTask := TaskEntity("Dana")
	assert.True(t, CanPerform(ds, ActionEdit, &ownTask))

	othersTask := TaskEntity("Bob")
	d = Decide(ds, ActionEdit, &othersTask)
	assert.Equal(t, DenialNotOwner, d.Denial)
}

func TestAuthorizeMove(t *testing.T) {
	alice := User{Name: "Alice", Role: RoleSalesRep}
	deal := OpportunityEntity("Alice", StageProposalSent)

	d := AuthorizeMove(alice, deal, StageNegotiationDecision)
	assert.True(t, d.Allowed)

	d = AuthorizeMove(alice, deal, StageVerbalWin)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenialIllegalTransition, d.Denial)
	assert.Equal(t, TransitionSkipStages, d.Code)

	ds := User{Name: "Dana", Role: RoleDataSpecialist}
	d = AuthorizeMove(ds, OpportunityEntity("", StageContactMade), StageClosedLost)
	assert.Equal(t, DenialIllegalTransition, d.Denial)
	assert.Equal(t, TransitionOutsideScope, d.Code)

	d = AuthorizeMove(ds, OpportunityEntity("", StageContactMade), StageDiscoveryCompleted)
	assert.Equal(t, TransitionOutsideScope, d.Code)

	d = AuthorizeMove(ds, OpportunityEntity("", StageDiscoveryCompleted), StageNewLead)
	assert.Equal(t, DenialNotOwner, d.Denial)

	d = AuthorizeMove(alice, OpportunityEntity("", StageNewLead), Stage("Archived"))
	assert.Equal(t, DenialIllegalTransition, d.Denial)

	d = AuthorizeMove(alice, TaskEntity("Alice"), StageNewLead)
	assert.Equal(t, DenialPermission, d.Denial)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decide(User{Role: RoleExec}, ActionExportData, nil).Err())

	err := Decide(User{Role: RoleSalesRep}, ActionExportData, nil).Err()
	require.Error(t, err)

	d, ok := IsDenied(err)
	require.True(t, ok)
	assert.Equal(t, DenialPermission, d.Denial)

	_, ok = IsDenied(errors.New("boom"))
	assert.False(t, ok)
}

func TestScenarioSalesRepProposalSent(t *testing.T) {
	alice := User{Name: "Alice", Role: RoleSalesRep}
	deal := OpportunityEntity("Alice", StageProposalSent)

	assert.True(t, CanEdit(alice, deal))
	assert.ElementsMatch(t,
		[]Stage{
			StageNegotiationDecision, StageClosedWon, StageClosedLost,
			StageQualifiedOpportunity, StageDiscoveryCompleted,
			StageContactMade, StageNewLead,
		},
		AllowedTargets(alice.Role, deal.Stage),
	)
}

func TestScenarioExecNeverMutates(t *testing.T) {
	exec := User{Name: "Eve", Role: RoleExec}
	mutations := []Action{ActionCreate, ActionEdit, ActionDelete, ActionMoveStage}

	var entities []Entity
	for _, st := range Stages() {
		entities = append(entities,
			OpportunityEntity("Eve", st),
			OpportunityEntity("", st),
		)
	}
	entities = append(entities,
		AccountEntity("Eve"), ContactEntity(), TaskEntity("Eve"), TaskEntity(""),
	)

	for _, e := range entities {
		for _, a := range mutations {
			assert.False(t, CanPerform(exec, a, &e), "%s %+v", a, e)
		}
		for _, target := range Stages() {
			assert.False(t, AuthorizeMove(exec, e, target).Allowed)
		}
	}
}

func TestDecideIsIdempotentAndConcurrent(t *testing.T) {
	alice := User{Name: "Alice", Role: RoleSalesRep}
	deal := OpportunityEntity("Alice", StageContactMade)
	snapshot := deal

	first := Decide(alice, ActionMoveStage, &deal)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, first, Decide(alice, ActionMoveStage, &deal))
			assert.Equal(t,
				[]Stage{StageNewLead, StageDiscoveryCompleted, StageClosedWon, StageClosedLost},
				AllowedTargets(alice.Role, deal.Stage),
			)
		}()
	}
	wg.Wait()

	assert.Equal(t, snapshot, deal)
}

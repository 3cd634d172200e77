// AngelaMos | 2026
// service_test.go

package contact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type fakeRepo struct {
	Repository
	contacts map[string]*Contact
}

func (f *fakeRepo) Create(_ context.Context, c *Contact) error {
	f.contacts[c.ID] = c
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListParams) ([]Contact, int, error) {
	out := make([]Contact, 0, len(f.contacts))
	for _, c := range f.contacts {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(_ context.Context, c *Contact) error {
	f.contacts[c.ID] = c
	return nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := &fakeRepo{contacts: map[string]*Contact{
		"c1": {ID: "c1", AccountID: "a1", FullName: "Jo Park"},
	}}
	return NewService(repo, access.NewGuard(nil, nil)), repo
}

func TestCreateContactByRole(t *testing.T) {
	tests := []struct {
		role    policy.Role
		allowed bool
	}{
		{policy.RoleSalesRep, true},
		{policy.RoleDataSpecialist, true},
		{policy.RoleOpsManagement, true},
		{policy.RoleExec, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			svc, repo := newTestService()
			u := policy.User{Name: "U", Role: tt.role}

			c, err := svc.Create(context.Background(), u, CreateContactRequest{
				AccountID: "a1",
				FullName:  " Lee Chan ",
				Email:     "Lee@Example.com",
			})
			if !tt.allowed {
				appErr := core.GetAppError(err)
				require.NotNil(t, appErr)
				assert.Equal(t, "PERMISSION_DENIED", appErr.Code)
				assert.Len(t, repo.contacts, 1)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Lee Chan", c.FullName)
			assert.Equal(t, "lee@example.com", c.Email)
		})
	}
}

func TestListContactsVisibleToEveryRole(t *testing.T) {
	svc, _ := newTestService()

	for _, role := range policy.Roles() {
		contacts, total, err := svc.List(context.Background(), policy.User{Name: "U", Role: role}, ListParams{})
		require.NoError(t, err, role)
		assert.Equal(t, 1, total)
		assert.Len(t, contacts, 1)
	}
}

func TestUpdateContact(t *testing.T) {
	svc, repo := newTestService()
	rep := policy.User{Name: "Riley", Role: policy.RoleSalesRep}

	billing := true
	c, err := svc.Update(context.Background(), rep, "c1", UpdateContactRequest{
		IsBillingContact: &billing,
	})
	require.NoError(t, err)
	assert.True(t, c.IsBillingContact)
	assert.True(t, repo.contacts["c1"].IsBillingContact)

	blank := ""
	_, err = svc.Update(context.Background(), rep, "c1", UpdateContactRequest{FullName: &blank})
	assert.Equal(t, "VALIDATION_ERROR", core.GetAppError(err).Code)

	exec := policy.User{Name: "Evan", Role: policy.RoleExec}
	_, err = svc.Update(context.Background(), exec, "c1", UpdateContactRequest{FullName: &blank})
	assert.Equal(t, "PERMISSION_DENIED", core.GetAppError(err).Code)
}

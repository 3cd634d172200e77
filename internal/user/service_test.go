// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

type fakeRepo struct {
	Repository
	users map[string]*User
}

func newFakeRepo(users ...*User) *fakeRepo {
	f := &fakeRepo{users: map[string]*User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeRepo) Create(_ context.Context, u *User) error {
	for _, existing := range f.users {
		if existing.Name == u.Name || existing.Email == u.Email {
			return core.ErrDuplicateKey
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpdateRole(_ context.Context, u *User) error {
	u.TokenVersion++
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) Rename(_ context.Context, u *User, name string) error {
	for _, existing := range f.users {
		if existing.Name == name {
			return core.ErrDuplicateKey
		}
	}
	u.Name = name
	u.TokenVersion++
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) ListAll(_ context.Context) ([]User, error) {
	out := make([]User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), "a@x.io", "h", "A", policy.Role("Admin"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	info, err := svc.Create(context.Background(), "B@X.io", "h", " Bea ", policy.RoleExec)
	require.NoError(t, err)
	assert.Equal(t, "b@x.io", info.Email)
	assert.Equal(t, "Bea", info.Name)
	assert.Equal(t, policy.RoleExec, info.Role)
}

func TestUpdateUserRole(t *testing.T) {
	repo := newFakeRepo(&User{ID: "u1", Name: "Sam", Role: policy.RoleSalesRep})
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.UpdateUserRole(ctx, "u1", "Admin")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	u, err := svc.UpdateUserRole(ctx, "u1", "Ops/Management")
	require.NoError(t, err)
	assert.Equal(t, policy.RoleOpsManagement, u.Role)
	assert.Equal(t, 1, u.TokenVersion)

	u, err = svc.UpdateUserRole(ctx, "u1", "OpsManagement")
	require.NoError(t, err)
	assert.Equal(t, 1, u.TokenVersion, "unchanged role keeps sessions")

	_, err = svc.UpdateUserRole(ctx, "missing", "Exec")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateUserRename(t *testing.T) {
	repo := newFakeRepo(
		&User{ID: "u1", Name: "Sam", TokenVersion: 2},
		&User{ID: "u2", Name: "Pat"},
	)
	svc := NewService(repo)
	ctx := context.Background()

	taken := "Pat"
	_, err := svc.UpdateUser(ctx, "u1", UpdateUserRequest{Name: &taken})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	blank := "   "
	_, err = svc.UpdateUser(ctx, "u1", UpdateUserRequest{Name: &blank})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	fresh := "Samuel"
	u, err := svc.UpdateUser(ctx, "u1", UpdateUserRequest{Name: &fresh})
	require.NoError(t, err)
	assert.Equal(t, "Samuel", u.Name)
	assert.Equal(t, 3, u.TokenVersion, "tokens carrying the old name are retired")
}

func TestCanDeleteUser(t *testing.T) {
	repo := newFakeRepo(
		&User{ID: "ops", Role: policy.RoleOpsManagement},
		&User{ID: "ops2", Role: policy.RoleOpsManagement},
		&User{ID: "rep", Role: policy.RoleSalesRep},
		&User{ID: "exec", Role: policy.RoleExec},
	)
	svc := NewService(repo)
	ctx := context.Background()

	tests := []struct {
		requester, target string
		allowed           bool
	}{
		{"rep", "rep", true},
		{"ops", "rep", true},
		{"ops", "exec", true},
		{"ops", "ops2", false},
		{"exec", "rep", false},
		{"rep", "ops", false},
	}

	for _, tt := range tests {
		t.Run(tt.requester+"->"+tt.target, func(t *testing.T) {
			err := svc.CanDeleteUser(ctx, tt.requester, tt.target)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrForbidden)
			}
		})
	}
}

func TestDirectory(t *testing.T) {
	svc := NewService(newFakeRepo(&User{ID: "u1", Name: "Dana", Role: policy.RoleDataSpecialist}))

	entries, err := svc.Directory(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Data Specialist", entries[0].RoleLabel)
}

func TestListUsersRejectsUnknownRole(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, _, err := svc.ListUsers(context.Background(), ListUsersParams{Role: "root"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

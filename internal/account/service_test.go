// AngelaMos | 2026
// service_test.go

package account

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
	accounts map[string]*Account
	listed   ListParams
	deleted  []string
}

func newFakeRepo(accounts ...*Account) *fakeRepo {
	f := &fakeRepo{accounts: map[string]*Account{}}
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeRepo) Create(_ context.Context, a *Account) error {
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, p ListParams) ([]Account, int, error) {
	f.listed = p
	return nil, 0, nil
}

func (f *fakeRepo) Update(_ context.Context, a *Account) error {
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.accounts, id)
	return nil
}

type owners map[string]bool

func (o owners) NameExists(_ context.Context, name string) (bool, error) {
	return o[name], nil
}

var (
	rep  = policy.User{Name: "Riley", Role: policy.RoleSalesRep}
	ops  = policy.User{Name: "Olive", Role: policy.RoleOpsManagement}
	data = policy.User{Name: "Dana", Role: policy.RoleDataSpecialist}
	exec = policy.User{Name: "Evan", Role: policy.RoleExec}
)

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, access.NewGuard(nil, nil), owners{"Sasha": true})
}

func code(t *testing.T, err error) string {
	t.Helper()
	appErr := core.GetAppError(err)
	require.NotNil(t, appErr, "expected *core.AppError, got %v", err)
	return appErr.Code
}

func TestCreateAccount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	a, err := svc.Create(context.Background(), data, CreateAccountRequest{
		CompanyName: " Northwind Glass ",
		Territory:   "North",
	})
	require.NoError(t, err)
	assert.Equal(t, "Northwind Glass", a.CompanyName)
	assert.Equal(t, LifecycleProspect, a.LifecycleStatus)
	assert.Equal(t, "Dana", a.OwnerName())

	_, err = svc.Create(context.Background(), exec, CreateAccountRequest{CompanyName: "X"})
	assert.Equal(t, "PERMISSION_DENIED", code(t, err))
}

func TestCreateAccountForAnotherOwner(t *testing.T) {
	svc := newTestService(newFakeRepo())
	sasha := "Sasha"
	ghost := "Ghost"

	a, err := svc.Create(context.Background(), rep, CreateAccountRequest{
		CompanyName: "X",
		Owner:       &sasha,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sasha", a.OwnerName())

	_, err = svc.Create(context.Background(), rep, CreateAccountRequest{
		CompanyName: "Y",
		Owner:       &ghost,
	})
	assert.Equal(t, "VALIDATION_ERROR", code(t, err))
}

func TestListAccountsVisibility(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	for _, u := range []policy.User{rep, ops, data, exec} {
		_, _, err := svc.List(context.Background(), u, ListParams{})
		require.NoError(t, err)
		assert.Empty(t, repo.listed.visibleTo, u.Role)
	}
}

func TestUpdateAccount(t *testing.T) {
	repo := newFakeRepo(&Account{ID: "a1", CompanyName: "Old", LifecycleStatus: LifecycleProspect})
	svc := newTestService(repo)
	ctx := context.Background()

	name := "New"
	status := LifecycleCustomer
	a, err := svc.Update(ctx, rep, "a1", UpdateAccountRequest{
		CompanyName:     &name,
		LifecycleStatus: &status,
	})
	require.NoError(t, err)
	assert.Equal(t, "New", a.CompanyName)
	assert.Equal(t, LifecycleCustomer, repo.accounts["a1"].LifecycleStatus)

	_, err = svc.Update(ctx, exec, "a1", UpdateAccountRequest{CompanyName: &name})
	assert.Equal(t, "PERMISSION_DENIED", code(t, err))

	blank := " "
	_, err = svc.Update(ctx, ops, "a1", UpdateAccountRequest{CompanyName: &blank})
	assert.Equal(t, "VALIDATION_ERROR", code(t, err))

	_, err = svc.Update(ctx, ops, "missing", UpdateAccountRequest{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteAccount(t *testing.T) {
	repo := newFakeRepo(&Account{ID: "a1"})
	svc := newTestService(repo)

	err := svc.Delete(context.Background(), exec, "a1")
	assert.Equal(t, "PERMISSION_DENIED", code(t, err))
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), data, "a1"))
	assert.Equal(t, []string{"a1"}, repo.deleted)
}

// AngelaMos | 2026
// service_test.go

package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

var (
	rep    = policy.User{Name: "Riley", Role: policy.RoleSalesRep}
	data   = policy.User{Name: "Dana", Role: policy.RoleDataSpecialist}
	ops    = policy.User{Name: "Olive", Role: policy.RoleOpsManagement}
	execUs = policy.User{Name: "Evan", Role: policy.RoleExec}
)

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type fakeRepo struct {
	tasks      map[string]*Task
	lastParams ListParams
	cutoff     time.Time
}

func (f *fakeRepo) Create(_ context.Context, t *Task) error {
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, params ListParams) ([]Task, int, error) {
	f.lastParams = params
	return nil, 0, nil
}

func (f *fakeRepo) ListOverdue(_ context.Context, before time.Time) ([]Task, error) {
	f.cutoff = before
	return nil, nil
}

func (f *fakeRepo) Update(_ context.Context, id string, apply func(t *Task) error) (*Task, error) {
	stored, ok := f.tasks[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *stored
	if err := apply(&cp); err != nil {
		return nil, err
	}
	f.tasks[id] = &cp
	return &cp, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string, check func(t *Task) error) error {
	stored, ok := f.tasks[id]
	if !ok {
		return core.ErrNotFound
	}
	cp := *stored
	if err := check(&cp); err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

// reassigningRepo commits an owner change for a task after the caller has
// read it but before the caller's write takes the row lock.
type reassigningRepo struct {
	*fakeRepo
	id    string
	owner string
}

func (r *reassigningRepo) GetByID(ctx context.Context, id string) (*Task, error) {
	t, err := r.fakeRepo.GetByID(ctx, id)
	if err == nil && id == r.id {
		r.tasks[id].Owner = ptr(r.owner)
	}
	return t, err
}

type staticOwners map[string]bool

func (s staticOwners) NameExists(_ context.Context, name string) (bool, error) {
	return s[name], nil
}

func ptr[T any](v T) *T { return &v }

func newTestService() (*Service, *fakeRepo) {
	repo := &fakeRepo{tasks: map[string]*Task{
		"t1": {ID: "t1", Subject: "Call back", Owner: ptr("Riley"), Status: StatusPending},
		"t2": {ID: "t2", Subject: "Send deck", Owner: ptr("Sasha"), Status: StatusPending},
		"t3": {ID: "t3", Subject: "Triage", Status: StatusPending},
	}}
	svc := NewService(repo, access.NewGuard(nil, nil), staticOwners{"Riley": true, "Sasha": true})
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	appErr := core.GetAppError(err)
	require.NotNil(t, appErr, "expected app error, got %v", err)
	return appErr.Code
}

func TestCreateTaskDefaults(t *testing.T) {
	svc, repo := newTestService()

	task, err := svc.Create(context.Background(), rep, CreateTaskRequest{Subject: "  Follow up  "})
	require.NoError(t, err)

	assert.Equal(t, "Follow up", task.Subject)
	assert.Equal(t, "Riley", task.OwnerName())
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, StatusPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Contains(t, repo.tasks, task.ID)
}

func TestCreateTaskDenials(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), execUs, CreateTaskRequest{Subject: "x"})
	assert.Equal(t, "PERMISSION_DENIED", errCode(t, err))

	_, err = svc.Create(context.Background(), rep, CreateTaskRequest{Subject: "x", Owner: ptr("Sasha")})
	assert.Equal(t, "NOT_OWNER", errCode(t, err))

	_, err = svc.Create(context.Background(), ops, CreateTaskRequest{Subject: "x", Owner: ptr("Nobody")})
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestCreateCompletedTaskStampsCompletion(t *testing.T) {
	svc, _ := newTestService()

	task, err := svc.Create(context.Background(), ops, CreateTaskRequest{
		Subject: "Done already",
		Owner:   ptr("Sasha"),
		Status:  StatusCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, fixedNow, *task.CompletedAt)
}

func TestListViews(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	t.Run("overdue", func(t *testing.T) {
		svc, repo := newTestService()
		_, _, err := svc.List(context.Background(), rep, ListParams{View: ViewOverdue})
		require.NoError(t, err)

		p := repo.lastParams
		assert.Equal(t, "Riley", p.visibleTo)
		assert.True(t, p.openOnly)
		require.NotNil(t, p.dueBefore)
		assert.Equal(t, today, *p.dueBefore)
		assert.Nil(t, p.dueFrom)
	})

	t.Run("daily is always mine", func(t *testing.T) {
		svc, repo := newTestService()
		_, _, err := svc.List(context.Background(), ops, ListParams{View: ViewDaily, Owner: "Sasha"})
		require.NoError(t, err)

		p := repo.lastParams
		assert.Empty(t, p.visibleTo)
		assert.Equal(t, "Olive", p.Owner)
		assert.Equal(t, today, *p.dueFrom)
		assert.Equal(t, tomorrow, *p.dueBefore)
	})

	t.Run("pipeline", func(t *testing.T) {
		svc, repo := newTestService()
		_, _, err := svc.List(context.Background(), execUs, ListParams{View: ViewPipeline})
		require.NoError(t, err)
		assert.True(t, repo.lastParams.pipelineOnly)
		assert.Empty(t, repo.lastParams.visibleTo)
	})

	t.Run("unknown view", func(t *testing.T) {
		svc, _ := newTestService()
		_, _, err := svc.List(context.Background(), rep, ListParams{View: "weekly"})
		assert.Equal(t, "VALIDATION_ERROR", errCode(t, err))
	})
}

func TestGetTaskVisibility(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), rep, "t1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), rep, "t3")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), rep, "t2")
	assert.Equal(t, "NOT_OWNER", errCode(t, err))

	_, err = svc.Get(context.Background(), execUs, "t2")
	require.NoError(t, err)
}

func TestUpdateTaskStatusTransitions(t *testing.T) {
	svc, _ := newTestService()

	task, err := svc.Update(context.Background(), rep, "t1", UpdateTaskRequest{Status: ptr(StatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)

	task, err = svc.Update(context.Background(), rep, "t1", UpdateTaskRequest{Status: ptr(StatusInProgress)})
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, StatusInProgress, task.Status)
}

func TestUpdateTaskOwnership(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), rep, "t2", UpdateTaskRequest{Notes: ptr("mine now")})
	assert.Equal(t, "NOT_OWNER", errCode(t, err))

	_, err = svc.Update(context.Background(), data, "t3", UpdateTaskRequest{Owner: ptr("Riley")})
	assert.Equal(t, "NOT_OWNER", errCode(t, err))

	task, err := svc.Update(context.Background(), ops, "t3", UpdateTaskRequest{Owner: ptr("Riley")})
	require.NoError(t, err)
	assert.Equal(t, "Riley", task.OwnerName())

	_, err = svc.Update(context.Background(), rep, "t1", UpdateTaskRequest{Subject: ptr("   ")})
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestUpdateTaskSeesConcurrentReassignment(t *testing.T) {
	svc, repo := newTestService()
	racing := &reassigningRepo{fakeRepo: repo, id: "t3", owner: "Sasha"}
	svc.repo = racing

	snapshot, err := svc.Get(context.Background(), rep, "t3")
	require.NoError(t, err)
	assert.Empty(t, snapshot.OwnerName())

	_, err = svc.Update(context.Background(), rep, "t3", UpdateTaskRequest{Notes: ptr("picked up")})
	assert.Equal(t, "NOT_OWNER", errCode(t, err))
	assert.Equal(t, "Sasha", repo.tasks["t3"].OwnerName())
	assert.Empty(t, repo.tasks["t3"].Notes)

	err = svc.Delete(context.Background(), rep, "t3")
	assert.Equal(t, "NOT_OWNER", errCode(t, err))
	assert.Contains(t, repo.tasks, "t3")
}

func TestDeleteTask(t *testing.T) {
	svc, repo := newTestService()

	err := svc.Delete(context.Background(), execUs, "t1")
	assert.Equal(t, "PERMISSION_DENIED", errCode(t, err))

	require.NoError(t, svc.Delete(context.Background(), rep, "t1"))
	assert.NotContains(t, repo.tasks, "t1")

	err = svc.Delete(context.Background(), rep, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestOverdueUsesStartOfToday(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Overdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), repo.cutoff)
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC)
	task := Task{Status: StatusPending, DueDate: &due}
	assert.Equal(t, 3, task.DaysOverdue(fixedNow))

	today := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	task.DueDate = &today
	assert.Zero(t, task.DaysOverdue(fixedNow))

	task.DueDate = &due
	task.Status = StatusCompleted
	assert.Zero(t, task.DaysOverdue(fixedNow))
}

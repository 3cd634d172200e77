// AngelaMos | 2026
// repository_test.go

package task

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

const taskID = "0b7f3f3a-5c5d-4d6e-9a8b-1f2e3d4c5b6a"

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewRepository(sqlx.NewDb(db, "postgres")), mock
}

var taskRowColumns = []string{
	"id", "subject", "due_date", "owner", "priority", "status", "notes",
	"opportunity_id", "account_id", "completed_at", "created_at", "updated_at",
}

func TestRepositoryGetByIDMalformed(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryListOverdueView(t *testing.T) {
	repo, mock := newMockRepo(t)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM tasks WHERE ((owner = $1 OR owner IS NULL) AND status <> $2 AND due_date < $3)",
	)).
		WithArgs("Riley", StatusCompleted, today).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY due_date ASC NULLS LAST, created_at LIMIT 50 OFFSET 0")).
		WithArgs("Riley", StatusCompleted, today).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(
			taskID, "Call back", today.AddDate(0, 0, -2), "Riley", PriorityHigh,
			StatusPending, "", nil, nil, nil, now, now,
		))

	tasks, total, err := repo.List(context.Background(), ListParams{
		visibleTo: "Riley",
		openOnly:  true,
		dueBefore: &today,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Riley", tasks[0].OwnerName())
	assert.Nil(t, tasks[0].OpportunityID)
}

func TestRepositoryListOverdue(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status <> $1 AND due_date < $2")).
		WithArgs(StatusCompleted, cutoff).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	tasks, err := repo.ListOverdue(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestRepositoryDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 FOR UPDATE")).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), taskID, func(*Task) error {
		t.Fatal("check must not run for a missing task")
		return nil
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryDeleteCheckDenies(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 FOR UPDATE")).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(
			taskID, "Call back", nil, "Sasha", PriorityHigh,
			StatusPending, "", nil, nil, nil, now, now,
		))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), taskID, func(t *Task) error {
		return core.ErrForbidden
	})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRepositoryUpdateLocksRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1 FOR UPDATE")).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(
			taskID, "Call back", nil, "Sasha", PriorityHigh,
			StatusPending, "", nil, nil, nil, now, now,
		))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks SET")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	var seen string
	updated, err := repo.Update(context.Background(), taskID, func(t *Task) error {
		seen = t.OwnerName()
		t.Notes = "left a voicemail"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Sasha", seen)
	assert.Equal(t, "Sasha", updated.OwnerName())
	assert.Equal(t, "left a voicemail", updated.Notes)
}

func TestRepositoryUpdateApplyErrorRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).AddRow(
			taskID, "Call back", nil, "Sasha", PriorityHigh,
			StatusPending, "", nil, nil, nil, now, now,
		))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), taskID, func(*Task) error {
		return core.ErrForbidden
	})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

// AngelaMos | 2026
// repository_test.go

package opportunity

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

const dealID = "0b8f5a3e-5d1c-4a57-9d53-0c4f1d3f7a10"

var oppCols = []string{
	"id", "name", "account_id", "owner", "stage", "revenue", "probability",
	"fields", "stage_changed_at", "closed_at", "created_at", "updated_at",
}

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

func dealRow(stage string, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(oppCols).AddRow(
		dealID, "Harbor Tower", nil, "Riley", stage, "25000.00", "0.10",
		[]byte(`{"Territory":"North"}`), now, nil, now, now,
	)
}

func TestRepositoryGetByIDScans(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM opportunities")).
		WithArgs(dealID).
		WillReturnRows(dealRow("NewLead", now))

	o, err := repo.GetByID(context.Background(), dealID)
	require.NoError(t, err)

	assert.Equal(t, policy.StageNewLead, o.Stage)
	assert.Equal(t, "Riley", o.OwnerName())
	assert.Nil(t, o.AccountID)
	assert.True(t, o.Revenue.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, "North", o.Fields["Territory"])
	assert.True(t, o.Forecast().Equal(decimal.NewFromInt(2500)))
}

func TestRepositoryGetByIDRejectsMalformedID(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRepositoryListScopesVisibility(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM opportunities WHERE ((owner = $1 OR owner IS NULL) AND stage = $2)",
	)).
		WithArgs("Riley", "NewLead").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY updated_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("Riley", "NewLead").
		WillReturnRows(dealRow("NewLead", now))

	opps, total, err := repo.List(context.Background(), ListParams{
		Stage:     "NewLead",
		visibleTo: "Riley",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, opps, 1)
}

func TestRepositoryListWithoutFilters(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM opportunities")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM opportunities ORDER BY updated_at DESC")).
		WillReturnRows(sqlmock.NewRows(oppCols))

	opps, total, err := repo.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, opps)
}

func TestRepositoryUpdateLocksAndRecordsHistory(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 FOR UPDATE`).
		WithArgs(dealID).
		WillReturnRows(dealRow("NewLead", now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE opportunities SET")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO opportunity_stage_history")).
		WithArgs(
			sqlmock.AnyArg(), dealID, "NewLead", "ContactMade", "Riley",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen policy.Stage
	o, err := repo.Update(context.Background(), dealID, func(o *Opportunity) (*StageChange, error) {
		seen = o.Stage
		o.Stage = policy.StageContactMade
		return &StageChange{
			OpportunityID: o.ID,
			FromStage:     policy.StageNewLead,
			ToStage:       policy.StageContactMade,
			MovedBy:       "Riley",
			Fields:        Fields{"Interest Type": "Doors"},
			MovedAt:       now,
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, policy.StageNewLead, seen)
	assert.Equal(t, policy.StageContactMade, o.Stage)
}

func TestRepositoryUpdateRollsBackOnDenial(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(dealID).
		WillReturnRows(dealRow("ClosedLost", now))
	mock.ExpectRollback()

	denied := errors.New("denied")
	_, err := repo.Update(context.Background(), dealID, func(*Opportunity) (*StageChange, error) {
		return nil, denied
	})
	assert.ErrorIs(t, err, denied)
}

func TestRepositoryDeleteChecksLockedRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(dealID).
		WillReturnRows(dealRow("NewLead", now))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM opportunities WHERE id = $1")).
		WithArgs(dealID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var owner string
	err := repo.Delete(context.Background(), dealID, func(o *Opportunity) error {
		owner = o.OwnerName()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Riley", owner)
}

func TestRepositoryHistory(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM opportunity_stage_history")).
		WithArgs(dealID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "opportunity_id", "from_stage", "to_stage", "moved_by", "fields", "moved_at",
		}).AddRow("h1", dealID, "NewLead", "ContactMade", "Riley", []byte(`{}`), now))

	changes, err := repo.History(context.Background(), dealID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, policy.StageContactMade, changes[0].ToStage)
}

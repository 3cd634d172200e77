// AngelaMos | 2026
// service_test.go

package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/core"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type fakeRepo struct {
	deals   []DealRow
	tasks   []TaskRow
	err     error
	tasksBy time.Time
}

func (f *fakeRepo) Deals(context.Context) ([]DealRow, error) {
	return f.deals, f.err
}

func (f *fakeRepo) OpenTasksDueBefore(_ context.Context, before time.Time) ([]TaskRow, error) {
	f.tasksBy = before
	return f.tasks, nil
}

func ptr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func deal(id, owner string, st policy.Stage, revenue, prob, source string) DealRow {
	d := DealRow{
		ID:          id,
		Name:        "Deal " + id,
		Stage:       st,
		Revenue:     dec(revenue),
		Probability: dec(prob),
	}
	if owner != "" {
		d.Owner = ptr(owner)
	}
	if source != "" {
		d.LeadSource = ptr(source)
	}
	return d
}

func newTestService(repo *fakeRepo) *Service {
	svc := NewService(repo, access.NewGuard(nil, nil))
	svc.now = func() time.Time { return fixedNow }
	return svc
}

var exec = policy.User{Name: "Evan", Role: policy.RoleExec}

func TestReportRequiresAnalyticsPermission(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	for _, role := range []policy.Role{policy.RoleSalesRep, policy.RoleDataSpecialist} {
		_, err := svc.Report(context.Background(), policy.User{Name: "x", Role: role})
		appErr := core.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, "PERMISSION_DENIED", appErr.Code)
	}

	_, err := svc.Report(context.Background(), policy.User{Name: "o", Role: policy.RoleOpsManagement})
	assert.NoError(t, err)
}

func TestReportAggregates(t *testing.T) {
	repo := &fakeRepo{deals: []DealRow{
		deal("1", "Riley", policy.StageProposalSent, "1000", "0.6", "Referral"),
		deal("2", "Riley", policy.StageClosedWon, "5000", "1", "Referral"),
		deal("3", "Riley", policy.StageClosedLost, "800", "0", "Website"),
		deal("4", "Sasha", policy.StageNewLead, "200", "0.1", ""),
		deal("5", "", policy.StageVerbalWin, "3000", "0.9", "Website"),
	}}
	svc := newTestService(repo)

	r, err := svc.Report(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, 5, r.Pipeline.Total)
	assert.Equal(t, 3, r.Pipeline.TotalActive)
	assert.Equal(t, 2, r.Pipeline.TotalClosed)
	require.Len(t, r.Pipeline.ByStage, 9)
	assert.Equal(t, policy.StageNewLead, r.Pipeline.ByStage[0].Stage)
	assert.Equal(t, 1, r.Pipeline.ByStage[0].Count)

	assert.True(t, dec("3320").Equal(r.Forecast.TotalForecast), r.Forecast.TotalForecast.String())
	assert.True(t, dec("5000").Equal(r.Forecast.WonRevenue))

	require.Len(t, r.TopOpportunities, 3)
	assert.Equal(t, "5", r.TopOpportunities[0].ID)
	assert.Equal(t, "Unassigned", r.TopOpportunities[0].Owner)
	assert.Equal(t, "Verbal Win", r.TopOpportunities[0].Stage)

	require.Len(t, r.Reps, 3)
	riley := r.Reps[0]
	assert.Equal(t, "Riley", riley.Owner)
	assert.Equal(t, 3, riley.Total)
	assert.Equal(t, 1, riley.Active)
	assert.True(t, dec("50").Equal(riley.WinRate))
	assert.True(t, dec("600").Equal(riley.Forecast))
	assert.Equal(t, "Sasha", r.Reps[1].Owner)
	assert.True(t, r.Reps[1].WinRate.IsZero())
	assert.Equal(t, "Unassigned", r.Reps[2].Owner)

	require.Len(t, r.LeadSources, 3)
	assert.Equal(t, "Referral", r.LeadSources[0].LeadSource)
	assert.True(t, dec("100").Equal(r.LeadSources[0].WinRate))
	assert.Equal(t, "Unspecified", r.LeadSources[1].LeadSource)
	assert.Equal(t, "Website", r.LeadSources[2].LeadSource)
	assert.True(t, r.LeadSources[2].WinRate.IsZero())
}

func TestReportTaskBuckets(t *testing.T) {
	repo := &fakeRepo{tasks: []TaskRow{
		{ID: "a", Subject: "Old", DueDate: time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)},
		{ID: "b", Subject: "Now", Owner: ptr("Riley"), DueDate: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)},
	}}
	svc := newTestService(repo)

	r, err := svc.Report(context.Background(), exec)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), repo.tasksBy)
	require.Len(t, r.Tasks.Overdue, 1)
	assert.Equal(t, 3, r.Tasks.Overdue[0].DaysOverdue)
	assert.Equal(t, "Unassigned", r.Tasks.Overdue[0].Owner)
	require.Len(t, r.Tasks.DueToday, 1)
	assert.Equal(t, "b", r.Tasks.DueToday[0].ID)
}

func TestReportPropagatesLoadError(t *testing.T) {
	boom := errors.New("db down")
	svc := newTestService(&fakeRepo{err: boom})

	_, err := svc.Report(context.Background(), exec)
	assert.ErrorIs(t, err, boom)
}

// AngelaMos | 2026
// report.go

package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/pipeline-crm/internal/policy"
)

const (
	unassigned  = "Unassigned"
	unspecified = "Unspecified"
	topDeals    = 5
)

type Report struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	Pipeline         PipelineSummary  `json:"pipeline"`
	Forecast         RevenueForecast  `json:"forecast"`
	TopOpportunities []TopOpportunity `json:"top_opportunities"`
	Reps             []RepStats       `json:"reps"`
	LeadSources      []SourceStats    `json:"lead_sources"`
	ProductDemand    []ProductStats   `json:"product_demand"`
	Tasks            TaskSummary      `json:"tasks"`
}

type StageStats struct {
	Stage            policy.Stage    `json:"stage"`
	Label            string          `json:"label"`
	Count            int             `json:"count"`
	Revenue          decimal.Decimal `json:"revenue"`
	WeightedForecast decimal.Decimal `json:"weighted_forecast"`
}

type PipelineSummary struct {
	ByStage     []StageStats `json:"by_stage"`
	TotalActive int          `json:"total_active"`
	TotalClosed int          `json:"total_closed"`
	Total       int          `json:"total"`
}

// RevenueForecast sums revenue weighted by probability over active deals.
type RevenueForecast struct {
	TotalForecast decimal.Decimal `json:"total_forecast"`
	WonRevenue    decimal.Decimal `json:"won_revenue"`
}

type TopOpportunity struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Stage         string          `json:"stage"`
	Owner         string          `json:"owner"`
	Probability   decimal.Decimal `json:"probability"`
	WeightedValue decimal.Decimal `json:"weighted_value"`
}

type outcome struct {
	Total      int             `json:"total"`
	Active     int             `json:"active"`
	ClosedWon  int             `json:"closed_won"`
	ClosedLost int             `json:"closed_lost"`
	WinRate    decimal.Decimal `json:"win_rate"`
	WonRevenue decimal.Decimal `json:"won_revenue"`
	Forecast   decimal.Decimal `json:"weighted_forecast"`
}

func (o *outcome) add(d DealRow) {
	o.Total++
	switch d.Stage {
	case policy.StageClosedWon:
		o.ClosedWon++
		o.WonRevenue = o.WonRevenue.Add(d.Revenue)
	case policy.StageClosedLost:
		o.ClosedLost++
	default:
		o.Active++
		o.Forecast = o.Forecast.Add(weighted(d))
	}
}

// finish computes the win rate as a percentage of closed deals.
func (o *outcome) finish() {
	closed := o.ClosedWon + o.ClosedLost
	if closed == 0 {
		o.WinRate = decimal.Zero
		return
	}
	o.WinRate = decimal.NewFromInt(int64(o.ClosedWon * 100)).
		Div(decimal.NewFromInt(int64(closed))).
		Round(1)
}

type RepStats struct {
	Owner string `json:"owner"`
	outcome
}

type SourceStats struct {
	LeadSource string `json:"lead_source"`
	outcome
}

type ProductStats struct {
	Product string `json:"product"`
	outcome
}

type TaskItem struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Owner       string    `json:"owner"`
	Priority    string    `json:"priority"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

type TaskSummary struct {
	DueToday []TaskItem `json:"due_today"`
	Overdue  []TaskItem `json:"overdue"`
}

func weighted(d DealRow) decimal.Decimal {
	return d.Revenue.Mul(d.Probability).Round(2)
}

func labelOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

// AngelaMos | 2026
// service.go

package analytics

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/pipeline-crm/internal/access"
	"github.com/carterperez-dev/pipeline-crm/internal/policy"
	"github.com/carterperez-dev/pipeline-crm/internal/task"
)

type Service struct {
	repo  Repository
	guard *access.Guard
	now   func() time.Time
}

func NewService(repo Repository, guard *access.Guard) *Service {
	return &Service{repo: repo, guard: guard, now: time.Now}
}

// Report builds every dashboard section from one snapshot of deals and
// open tasks. Deals and tasks load concurrently.
func (s *Service) Report(ctx context.Context, u policy.User) (*Report, error) {
	if err := s.guard.Check(ctx, u, policy.ActionViewAnalytics, nil); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	today := task.StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	var (
		deals []DealRow
		open  []TaskRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deals, err = s.repo.Deals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		open, err = s.repo.OpenTasksDueBefore(gctx, tomorrow)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reps := grouped(deals, func(d DealRow) string {
		return labelOr(d.Owner, unassigned)
	}, func(k string, o outcome) RepStats {
		return RepStats{Owner: k, outcome: o}
	})
	sources := grouped(deals, func(d DealRow) string {
		return labelOr(d.LeadSource, unspecified)
	}, func(k string, o outcome) SourceStats {
		return SourceStats{LeadSource: k, outcome: o}
	})
	products := grouped(deals, func(d DealRow) string {
		return labelOr(d.ProductInterest, unspecified)
	}, func(k string, o outcome) ProductStats {
		return ProductStats{Product: k, outcome: o}
	})

	return &Report{
		GeneratedAt:      now,
		Pipeline:         pipelineSummary(deals),
		Forecast:         revenueForecast(deals),
		TopOpportunities: topOpportunities(deals),
		Reps:             reps,
		LeadSources:      sources,
		ProductDemand:    products,
		Tasks:            taskSummary(open, today),
	}, nil
}

func pipelineSummary(deals []DealRow) PipelineSummary {
	byStage := make(map[policy.Stage]*StageStats)
	stages := policy.Stages()
	out := PipelineSummary{ByStage: make([]StageStats, 0, len(stages))}

	for _, st := range stages {
		byStage[st] = &StageStats{
			Stage:            st,
			Label:            st.DisplayName(),
			Revenue:          decimal.Zero,
			WeightedForecast: decimal.Zero,
		}
	}

	for _, d := range deals {
		ss, ok := byStage[d.Stage]
		if !ok {
			continue
		}
		ss.Count++
		ss.Revenue = ss.Revenue.Add(d.Revenue)
		ss.WeightedForecast = ss.WeightedForecast.Add(weighted(d))

		out.Total++
		if d.Stage.IsTerminal() {
			out.TotalClosed++
		} else {
			out.TotalActive++
		}
	}

	for _, st := range stages {
		out.ByStage = append(out.ByStage, *byStage[st])
	}
	return out
}

func revenueForecast(deals []DealRow) RevenueForecast {
	f := RevenueForecast{TotalForecast: decimal.Zero, WonRevenue: decimal.Zero}
	for _, d := range deals {
		switch {
		case d.Stage == policy.StageClosedWon:
			f.WonRevenue = f.WonRevenue.Add(d.Revenue)
		case !d.Stage.IsTerminal():
			f.TotalForecast = f.TotalForecast.Add(weighted(d))
		}
	}
	return f
}

func topOpportunities(deals []DealRow) []TopOpportunity {
	out := make([]TopOpportunity, 0, topDeals)
	for _, d := range deals {
		if d.Stage.IsTerminal() {
			continue
		}
		out = append(out, TopOpportunity{
			ID:            d.ID,
			Name:          d.Name,
			Stage:         d.Stage.DisplayName(),
			Owner:         labelOr(d.Owner, unassigned),
			Probability:   d.Probability,
			WeightedValue: weighted(d),
		})
	}

	slices.SortStableFunc(out, func(a, b TopOpportunity) int {
		if c := b.WeightedValue.Cmp(a.WeightedValue); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	if len(out) > topDeals {
		out = out[:topDeals]
	}
	return out
}

// grouped buckets deals by key and returns one row per key, sorted by key.
func grouped[T any](
	deals []DealRow,
	key func(DealRow) string,
	build func(string, outcome) T,
) []T {
	buckets := make(map[string]*outcome)
	for _, d := range deals {
		k := key(d)
		o, ok := buckets[k]
		if !ok {
			o = &outcome{WonRevenue: decimal.Zero, Forecast: decimal.Zero}
			buckets[k] = o
		}
		o.add(d)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		o := buckets[k]
		o.finish()
		out = append(out, build(k, *o))
	}
	return out
}

func taskSummary(rows []TaskRow, today time.Time) TaskSummary {
	out := TaskSummary{DueToday: []TaskItem{}, Overdue: []TaskItem{}}
	for _, t := range rows {
		dueDay := task.StartOfDay(t.DueDate)

		item := TaskItem{
			ID:       t.ID,
			Subject:  t.Subject,
			Owner:    labelOr(t.Owner, unassigned),
			Priority: t.Priority,
			DueDate:  t.DueDate,
		}

		if dueDay.Before(today) {
			item.DaysOverdue = int(today.Sub(dueDay).Hours() / 24)
			out.Overdue = append(out.Overdue, item)
			continue
		}
		out.DueToday = append(out.DueToday, item)
	}
	return out
}

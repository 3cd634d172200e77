// AngelaMos | 2026
// jobs.go

package jobs

import (
	"context"
	"log/slog"

	"github.com/carterperez-dev/pipeline-crm/internal/alerts"
	"github.com/carterperez-dev/pipeline-crm/internal/config"
)

const (
	AlertsRefresh = "alerts_refresh"
	TokenPurge    = "token_purge"
)

type AlertRefresher interface {
	Refresh(ctx context.Context) (*alerts.Snapshot, error)
}

type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// Defaults returns the background jobs the API process runs.
func Defaults(
	cfg *config.Config,
	refresher AlertRefresher,
	purger TokenPurger,
	logger *slog.Logger,
) []Job {
	if logger == nil {
		logger = slog.Default()
	}

	return []Job{
		{
			Name:     AlertsRefresh,
			Schedule: cfg.Alerts.RefreshSchedule,
			Run: func(ctx context.Context) error {
				snap, err := refresher.Refresh(ctx)
				if err != nil {
					return err
				}
				logger.Info("alerts refreshed", "total", snap.Total)
				return nil
			},
		},
		{
			Name:     TokenPurge,
			Schedule: cfg.Jobs.TokenPurgeSchedule,
			Run: func(ctx context.Context) error {
				n, err := purger.PurgeExpiredTokens(ctx)
				if err != nil {
					return err
				}
				if n > 0 {
					logger.Info("expired refresh tokens purged", "count", n)
				}
				return nil
			},
		},
	}
}

// AngelaMos | 2026
// scheduler.go

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/carterperez-dev/pipeline-crm/internal/core"
)

const defaultTimeout = 2 * time.Minute

type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules in UTC. A job still running when
// its next tick arrives is skipped, and a panicking job is recovered.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *core.Metrics
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(logger *slog.Logger, metrics *core.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		metrics: metrics,
		timeout: defaultTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Scheduler) Add(j Job) error {
	if j.Run == nil {
		return fmt.Errorf("job %s: no run function", j.Name)
	}
	if _, err := s.cron.AddFunc(j.Schedule, func() { s.run(j) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", j.Name, err)
	}
	s.logger.Info("job scheduled", "job", j.Name, "schedule", j.Schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling, cancels running jobs and waits for them to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

func (s *Scheduler) run(j Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	ctx, span := core.StartSpan(ctx, "job."+j.Name)
	start := time.Now()
	err := j.Run(ctx)
	elapsed := time.Since(start)
	core.EndSpan(span, err)

	s.metrics.ObserveJob(j.Name, err, elapsed)

	if err != nil {
		s.logger.Error("job failed", "job", j.Name, "duration", elapsed, "error", err)
		return
	}
	s.logger.Debug("job finished", "job", j.Name, "duration", elapsed)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

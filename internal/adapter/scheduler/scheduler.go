package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"taskapp/internal/core/port"
	"taskapp/pkg/config"
)

const (
	DefaultSystemInterval = 15 * time.Second
	DefaultStatsInterval  = 30 * time.Second
)

type StatsSource interface {
	Stats(ctx context.Context) (port.TaskStats, error)
}

type SystemSampler interface {
	SampleSystem()
}

// Scheduler wraps the cron jobs that keep the telemetry gauges fresh.
type Scheduler struct {
	cron   *cron.Cron
	logger *config.LokiLogger
}

func New(loc *time.Location, logger *config.LokiLogger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		logger: logger,
	}
}

// ScheduleInterval registers job to run every interval, rounded down to
// whole seconds with a minimum of one.
func (s *Scheduler) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", interval)
	}

	seconds := max(int(interval.Seconds()), 1)

	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), job)
}

// ScheduleGauges registers the process sampler and the task gauge refresh.
func (s *Scheduler) ScheduleGauges(system SystemSampler, stats StatsSource, metrics port.TaskMetrics) error {
	if _, err := s.ScheduleInterval(DefaultSystemInterval, system.SampleSystem); err != nil {
		return err
	}

	_, err := s.ScheduleInterval(DefaultStatsInterval, func() {
		RefreshTaskGauges(context.Background(), stats, metrics, s.logger)
	})

	return err
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func RefreshTaskGauges(ctx context.Context, stats StatsSource, metrics port.TaskMetrics, logger *config.LokiLogger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	current, err := stats.Stats(ctx)

	if err != nil {
		logger.WarnWithTrace(ctx, "Failed to refresh task gauges", zap.Error(err))
		return
	}

	metrics.SetTaskGauges(current)
}

package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/ddd/internal/history"
	"git.home.luguber.info/inful/ddd/internal/logfields"
)

// DefaultPruneInterval is how often history retention runs.
const DefaultPruneInterval = 10 * time.Minute

// Scheduler wraps a gocron scheduler for the daemon's housekeeping jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(_ context.Context) {
	s.logger.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop(_ context.Context) error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleHistoryPrune keeps only the newest keep runs in store, first
// immediately and then every interval. Returns the job ID.
func (s *Scheduler) ScheduleHistoryPrune(store history.Store, keep int, interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.pruneHistory, store, keep),
		gocron.WithName("history-prune"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create history prune job: %w", err)
	}
	return job.ID().String(), nil
}

func (s *Scheduler) pruneHistory(store history.Store, keep int) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	removed, err := store.Prune(ctx, keep)
	if err != nil {
		s.logger.Warn("History prune failed", logfields.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("Pruned run history", slog.Int64("removed", removed), slog.Int("keep", keep))
	}
}

package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the periodic maintenance jobs
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	pruneJob *PruneJob
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler running pruneJob on schedule, a standard
// five-field cron expression or a descriptor such as "@daily"
func NewScheduler(schedule string, pruneJob *PruneJob, logger zerolog.Logger) (*Scheduler, error) {
	logger = logger.With().Str("component", "scheduler").Logger()
	cronLogger := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		schedule: schedule,
		pruneJob: pruneJob,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.runPrune); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	return s, nil
}

// Start runs the scheduler until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting scheduler...")

	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.Info().
			Str("schedule", s.schedule).
			Time("next_run", entry.Next).
			Msg("Scheduled recent chats prune")
	}

	<-ctx.Done()

	// Wait for a running job to finish
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runPrune() {
	if s.pruneJob == nil {
		s.logger.Warn().Msg("Prune job not configured, skipping")
		return
	}

	if err := s.pruneJob.Run(context.Background()); err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled prune failed")
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

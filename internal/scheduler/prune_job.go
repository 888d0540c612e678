package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Pruner deletes recent chat entries older than a cutoff
type Pruner interface {
	PruneRecentChats(ctx context.Context, before time.Time) (int, error)
}

// PruneJob removes recent chats older than the retention window
type PruneJob struct {
	store     Pruner
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPruneJob creates a new prune job keeping retentionDays days of entries
func NewPruneJob(store Pruner, retentionDays int, logger zerolog.Logger) *PruneJob {
	return &PruneJob{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		timeout:   time.Minute,
		now:       time.Now,
		logger:    logger.With().Str("component", "prune_job").Logger(),
	}
}

// Run executes the prune job
func (j *PruneJob) Run(ctx context.Context) error {
	startTime := j.now()
	cutoff := startTime.Add(-j.retention)

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	j.logger.Info().
		Time("cutoff", cutoff).
		Msg("Starting recent chats prune")

	deleted, err := j.store.PruneRecentChats(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune recent chats: %w", err)
	}

	j.logger.Info().
		Int("deleted", deleted).
		Dur("duration", time.Since(startTime)).
		Msg("Recent chats prune completed")

	return nil
}

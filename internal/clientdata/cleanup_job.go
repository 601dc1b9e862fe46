package clientdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes expired entries from the sqlite cache.
// It should be scheduled to run daily.
type CleanupJob struct {
	store   *Store
	timeout time.Duration
	log     zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(store *Store, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		store:   store,
		timeout: time.Minute,
		log:     log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job, removing all expired entries.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	deleted, err := j.store.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired cache entries")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Msg("Cache cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}

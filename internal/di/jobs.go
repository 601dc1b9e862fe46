package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/horizon/internal/clientdata"
	"github.com/aristath/horizon/internal/config"
	"github.com/aristath/horizon/internal/reliability"
	"github.com/aristath/horizon/internal/scheduler"
)

// maintenanceSchedule runs health checks and WAL checkpoints every 6 hours
const maintenanceSchedule = "0 15 */6 * * *"

// RegisterJobs creates the scheduler and registers the background jobs.
// The scheduler is not started.
func RegisterJobs(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)
	container.Scheduler = sched

	if err := sched.AddJob(cfg.Cache.CleanupSchedule, clientdata.NewCleanupJob(container.CacheStore, log)); err != nil {
		return fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	maintenance := reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log)
	if err := sched.AddJob(maintenanceSchedule, maintenance); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if !cfg.Backup.Enabled() {
		log.Info().Msg("Backups disabled (no bucket configured)")
		return nil
	}

	store, err := reliability.NewS3Client(ctx, reliability.S3Config{
		Bucket:          cfg.Backup.Bucket,
		Endpoint:        cfg.Backup.Endpoint,
		Region:          cfg.Backup.Region,
		AccessKeyID:     cfg.Backup.AccessKeyID,
		SecretAccessKey: cfg.Backup.SecretAccessKey,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create backup client: %w", err)
	}

	container.Backup = reliability.NewBackupService(store, container.Databases(), cfg.DataDir, cfg.Backup.Prefix, log)
	backup := reliability.NewBackupJob(container.Backup, cfg.Backup.Retention, log)
	if err := sched.AddJob(cfg.Backup.Schedule, backup); err != nil {
		return fmt.Errorf("failed to register backup job: %w", err)
	}

	return nil
}

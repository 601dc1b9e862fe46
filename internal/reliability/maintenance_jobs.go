package reliability

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/horizon/internal/database"
)

// minFreeDiskBytes halts maintenance when the data volume is nearly full
const minFreeDiskBytes = 500 * 1024 * 1024

// BackupJob uploads a backup and rotates old ones
type BackupJob struct {
	service   *BackupService
	retention int
	timeout   time.Duration
	log       zerolog.Logger
}

// NewBackupJob creates a new backup job keeping `retention` backups
func NewBackupJob(service *BackupService, retention int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:   service,
		retention: retention,
		timeout:   30 * time.Minute,
		log:       log.With().Str("job", "database_backup").Logger(),
	}
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}
	if _, err := j.service.RotateOldBackups(ctx, j.retention); err != nil {
		// the new backup is safe; rotation is retried next run
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "database_backup"
}

// MaintenanceJob performs daily database maintenance: integrity checks, WAL
// checkpoints and a free space check on the data volume
type MaintenanceJob struct {
	databases map[string]*database.DB
	dataDir   string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		timeout:   10 * time.Minute,
		log:       log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		db := j.databases[name]
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Str("database", name).Err(err).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// not critical, the next checkpoint catches up
			j.log.Warn().Str("database", name).Err(err).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Int("databases", len(names)).
		Msg("Database maintenance completed")
	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// checkDiskSpace verifies sufficient disk space is available
func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	freeGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("free_gb", freeGB).Float64("used_percent", usage.UsedPercent).Msg("Disk space check")

	if usage.Free < minFreeDiskBytes {
		j.log.Error().Float64("free_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free on data volume", freeGB)
	}
	if usage.UsedPercent > 90 {
		j.log.Warn().Float64("used_percent", usage.UsedPercent).Msg("Disk space running low")
	}
	return nil
}

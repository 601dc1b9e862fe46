package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type backupCmd struct {
	app  *App
	list bool
	keep int
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "back up the databases to S3 or list existing backups" }
func (*backupCmd) Usage() string {
	return `horizon backup [-list] [-keep n]

  Snapshots every database, uploads the archive and rotates old
  backups. Needs HORIZON_BACKUP_BUCKET.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "list backups instead of creating one")
	f.IntVar(&c.keep, "keep", 0, "backups to keep after uploading, 0 keeps all")
}

func (c *backupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.open(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	if container.Backup == nil {
		return c.app.fail(errors.New("backups are not configured"))
	}

	if c.list {
		backups, err := container.Backup.ListBackups(ctx)
		if err != nil {
			return c.app.fail(err)
		}
		for _, b := range backups {
			fmt.Fprintf(c.app.Out, "%s\t%s\t%d\n", b.Timestamp.Format("2006-01-02 15:04:05"), b.Key, b.SizeBytes)
		}
		return subcommands.ExitSuccess
	}

	info, err := container.Backup.CreateAndUploadBackup(ctx)
	if err != nil {
		return c.app.fail(err)
	}
	fmt.Fprintf(c.app.Out, "uploaded %s (%d bytes)\n", info.Key, info.SizeBytes)

	if c.keep > 0 {
		deleted, err := container.Backup.RotateOldBackups(ctx, c.keep)
		if err != nil {
			return c.app.fail(err)
		}
		fmt.Fprintf(c.app.Out, "deleted %d old backups\n", deleted)
	}
	return subcommands.ExitSuccess
}

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/backup"
	"github.com/poachedegg12/SplitProject/internal/lock"
	"github.com/poachedegg12/SplitProject/internal/report"
)

func (a *app) recoverCmd() *cobra.Command {
	var (
		gameFlag  string
		breakLock bool
	)

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Restore original game files left patched by an interrupted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.gameDir(gameFlag)
			if err != nil {
				return err
			}
			return a.runRecover(dir, breakLock)
		},
	}
	cmd.Flags().StringVar(&gameFlag, "game", "", "Game folder (overrides the saved one)")
	cmd.Flags().BoolVar(&breakLock, "break-lock", false, "Remove a session lock left by a crashed run")
	return cmd
}

func (a *app) runRecover(dir string, breakLock bool) error {
	if age, ok := report.Age(filepath.Join(filepath.Dir(a.cfg.Path()), report.FileName)); ok {
		fmt.Fprintf(a.out, "Last session report written %s\n", age)
	}

	if pid, held := lock.Owner(dir); held {
		if _, stale := lock.Stale(dir); !stale && !breakLock {
			return fmt.Errorf("%w (pid %d); close it first, or use --break-lock if it crashed", lock.ErrLocked, pid)
		}
		if err := lock.Break(dir); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed stale session lock (pid %d)\n", pid)
	}

	records, errs, err := backup.Recover(dir)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "Nothing to recover.")
		if left := backup.Leftovers(dir); len(left) > 0 {
			warnColor.Fprintf(a.out, "Backups with no session record were left in place: %s\n", strings.Join(left, ", "))
		}
		return nil
	}

	restored := 0
	for _, rec := range records {
		if rec.Restored {
			restored++
			a.logger.Debug().Str("file", rec.Original).Msg("Restored")
		}
	}
	for _, e := range errs {
		errorColor.Fprintf(a.errOut, "  %v\n", e)
	}

	fmt.Fprintf(a.out, "Restored %s of %s\n", plural(restored, "file", "files"), plural(len(records), "backup", "backups"))
	if len(errs) > 0 {
		a.exitCode = 1
		fmt.Fprintf(a.out, "The remaining backups are kept; run \"split recover\" again once the files are free.\n")
	}
	return nil
}

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/download"
	"github.com/poachedegg12/SplitProject/internal/session"
)

func (a *app) fetchCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a zipped mod into the mods folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := download.Options{Name: name}
			if !a.quiet {
				opts.Progress = func(done, total int64, pct int) {
					fmt.Fprintf(a.out, "\rDownloading... %3d%% (%s of %s)", pct, humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
				}
				opts.Extract = func(current, total int, filename string) {
					if a.verbose {
						fmt.Fprintf(a.out, "  [%d/%d] %s\n", current, total, filename)
					}
				}
			}

			pkg, err := download.Mod(cmd.Context(), args[0], a.cfg.ModsDir, opts)
			if !a.quiet {
				fmt.Fprintln(a.out)
			}
			if err != nil {
				return err
			}

			okColor.Fprintf(a.out, "Installed %s\n", pkg.Name())
			fmt.Fprintf(a.out, "  %s in %s\n", plural(len(pkg.Patches), "patch", "patches"), pkg.Dir)
			if len(pkg.Patches) == 0 {
				warnColor.Fprintln(a.out, "  No .xdelta patches found; the mod may need \"split convert\".")
			}
			a.sound.Play(session.CueSuccess)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Folder name for the mod (defaults to the archive name)")
	return cmd
}

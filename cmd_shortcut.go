package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/shortcut"
)

func (a *app) shortcutCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "shortcut <mod>",
		Short: "Create a desktop shortcut that plays a mod",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mod, err := a.resolveMod(args[0])
			if err != nil {
				return err
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to locate split: %w", err)
			}
			if dir == "" {
				if dir, err = shortcut.DesktopDir(); err != nil {
					return err
				}
			}

			path, err := shortcut.Create(dir, shortcut.ForMod(exe, filepath.Base(mod.Dir)))
			if err != nil {
				return err
			}
			okColor.Fprintf(a.out, "Created %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Where to put the shortcut (defaults to the desktop)")
	return cmd
}

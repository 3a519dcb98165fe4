package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/game"
)

func (a *app) setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup [game folder]",
		Short: "Choose the game folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if _, err := a.chooseGameDir(); err != nil {
					return err
				}
			} else {
				if err := a.cfg.SetGameDir(args[0]); err != nil {
					return err
				}
				if err := a.cfg.Save(); err != nil {
					return err
				}
			}

			inst, err := game.Scan(a.cfg.GameDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Game folder: %s\n", inst.Dir)
			if len(inst.Executables) == 0 {
				warnColor.Fprintln(a.out, "No game executable found there; sessions will not be able to launch.")
			} else {
				fmt.Fprintf(a.out, "Found %s (%s)\n", plural(len(inst.Targets), "patchable file", "patchable files"), inst.Executables[0])
			}
			fmt.Fprintf(a.out, "Saved to %s\n", a.cfg.Path())
			return nil
		},
	}
}

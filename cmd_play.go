package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/delta"
	"github.com/poachedegg12/SplitProject/internal/modpkg"
	"github.com/poachedegg12/SplitProject/internal/prompt"
	"github.com/poachedegg12/SplitProject/internal/report"
	"github.com/poachedegg12/SplitProject/internal/session"
)

func (a *app) playCmd() *cobra.Command {
	var gameFlag string

	cmd := &cobra.Command{
		Use:   "play [mod]",
		Short: "Patch the game with a mod, launch it, and restore the originals when it exits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			return a.runPlay(cmd.Context(), name, gameFlag)
		},
	}
	cmd.Flags().StringVar(&gameFlag, "game", "", "Game folder (overrides the saved one)")
	return cmd
}

func (a *app) runPlay(ctx context.Context, modName, gameFlag string) error {
	mod, err := a.resolveMod(modName)
	if err != nil {
		return err
	}
	gameDir, err := a.gameDir(gameFlag)
	if err != nil {
		return err
	}

	codec := a.newCodec(a.cfg.XDelta)
	if x, ok := codec.(*delta.XDelta); ok && !x.Available() {
		return fmt.Errorf("%w: %s was not found; install xdelta3 or set [Patch] xdelta in %s",
			delta.ErrCodecUnavailable, a.cfg.XDelta, filepath.Base(a.cfg.Path()))
	}

	policy, err := session.ParseLaunchPolicy(a.cfg.LaunchWithoutPatches)
	if err != nil {
		return err
	}

	p := &session.Patcher{
		Codec:        codec,
		Launcher:     a.newLauncher(),
		Notifier:     a.notifier(),
		Sound:        a.sound,
		LaunchPolicy: policy,
		ConfirmLaunch: func(name string) bool {
			return prompt.Confirm(fmt.Sprintf("No patch from %s could be applied. Launch the game anyway?", name), false, a.prompt)
		},
		IsRunning: a.isRunning,
	}
	// Session lines are printed below; the structured log only doubles them
	// up for debugging.
	if a.verbose {
		p.Logger = &a.logger
	}

	// Ctrl+C reaches the game too; keep running so the originals get restored.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintf(a.out, "Playing %s from %s\n\n", mod.Name(), gameDir)
	h := p.Start(ctx, mod.Dir, gameDir)
	for line := range h.Lines(context.Background()) {
		a.printLine(line)
	}
	res := h.Wait()

	if !a.quiet {
		printSummary(a.out, res)
	}
	if path, err := report.Save(filepath.Dir(a.cfg.Path()), res); err != nil {
		a.logger.Warn().Err(err).Msg("Couldn't save the session report")
	} else {
		a.logger.Debug().Str("path", path).Msg("Session report saved")
	}

	if !res.Success() {
		a.exitCode = 1
	}
	return nil
}

// resolveMod finds a mod by folder name, display name or path. An empty
// name asks the user to pick one.
func (a *app) resolveMod(name string) (*modpkg.Package, error) {
	if name != "" {
		if info, err := os.Stat(name); err == nil && info.IsDir() && filepath.Base(name) != name {
			return modpkg.Load(name)
		}
	}

	mods, err := modpkg.List(a.cfg.ModsDir)
	if err != nil {
		return nil, err
	}
	if len(mods) == 0 {
		return nil, fmt.Errorf("no mods found in %s", a.cfg.ModsDir)
	}

	if name == "" {
		options := make([]string, len(mods))
		for i, m := range mods {
			options[i] = m.Name()
		}
		choice, err := prompt.Choose("Select a mod", options, a.prompt)
		if err != nil {
			return nil, err
		}
		return mods[choice], nil
	}

	for _, m := range mods {
		if filepath.Base(m.Dir) == name {
			return m, nil
		}
	}
	var found *modpkg.Package
	for _, m := range mods {
		if strings.EqualFold(m.Name(), name) {
			if found != nil {
				return nil, fmt.Errorf("%q matches more than one mod; use the folder name", name)
			}
			found = m
		}
	}
	if found != nil {
		return found, nil
	}
	return nil, errors.New("mod not found: " + name + " (see \"split mods\")")
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/audio"
	"github.com/poachedegg12/SplitProject/internal/config"
	"github.com/poachedegg12/SplitProject/internal/delta"
	"github.com/poachedegg12/SplitProject/internal/logging"
	"github.com/poachedegg12/SplitProject/internal/process"
	"github.com/poachedegg12/SplitProject/internal/prompt"
)

// app is the state shared by every command of one invocation.
type app struct {
	// Global flags
	configPath     string
	quiet          bool
	verbose        bool
	noSound        bool
	nonInteractive bool

	cfg    *config.Config
	logger zerolog.Logger
	sound  *audio.Player
	prompt *prompt.Config
	out    io.Writer
	errOut io.Writer

	// Replaced in tests
	newCodec    func(bin string) delta.Codec
	newLauncher func() process.Launcher
	isRunning   func(dir, exe string) bool

	exitCode int
}

func newApp() *app {
	return &app{
		logger:      logging.Nop(),
		out:         os.Stdout,
		errOut:      os.Stderr,
		newCodec:    func(bin string) delta.Codec { return delta.NewXDelta(bin) },
		newLauncher: func() process.Launcher { return &process.Runner{} },
		isRunning:   process.IsRunningFromDir,
	}
}

// defaultConfigPath puts split.ini next to the binary, like the rest of the
// portable install.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return config.FileName
	}
	return filepath.Join(filepath.Dir(exe), config.FileName)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "split",
		Short: "Patch a game with a mod, play it, and put everything back",
		Long: `Split applies a mod's xdelta patches to a copy-safe game installation,
launches the game, and restores the original files when it exits.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", defaultConfigPath(), "Settings file")
	flags.BoolVar(&a.quiet, "quiet", false, "Only show warnings and errors")
	flags.BoolVar(&a.verbose, "verbose", false, "Show detailed output")
	flags.BoolVar(&a.noSound, "no-sound", false, "Don't play sound cues")
	flags.BoolVar(&a.nonInteractive, "non-interactive", false, "Never prompt; use defaults")

	root.AddCommand(
		a.playCmd(),
		a.modsCmd(),
		a.recoverCmd(),
		a.setupCmd(),
		a.fetchCmd(),
		a.convertCmd(),
		a.shortcutCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads settings and builds the logger, sound player and prompter
// before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()
	a.logger = logging.New(logging.Options{
		Quiet:   a.quiet,
		Verbose: a.verbose,
		Out:     a.errOut,
	})

	switch cmd.Name() {
	case "version", "help":
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug().Str("config", cfg.Path()).Msg("Settings loaded")

	a.sound = audio.New(cfg.Sound && !a.noSound, cfg.SoundDir, &a.logger)
	a.prompt = &prompt.Config{
		NonInteractive: a.nonInteractive,
		Sound:          a.sound,
		In:             cmd.InOrStdin(),
		Out:            a.out,
	}
	return nil
}

// gameDir returns the installation to work on: the flag, then the saved
// setting, then whatever the user picks (which is saved for next time).
func (a *app) gameDir(flag string) (string, error) {
	if flag != "" {
		abs, err := filepath.Abs(flag)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", flag, err)
		}
		return abs, nil
	}
	if a.cfg.HasGameDir() {
		return a.cfg.GameDir, nil
	}

	if a.cfg.GameDir != "" {
		fmt.Fprintf(a.errOut, "The saved game folder no longer exists: %s\n", a.cfg.GameDir)
	}
	return a.chooseGameDir()
}

func (a *app) chooseGameDir() (string, error) {
	dir, err := prompt.SelectFolder("Game folder", a.cfg.GameDir, a.prompt)
	if err != nil {
		return "", fmt.Errorf("no game folder selected: %w", err)
	}
	if err := a.cfg.SetGameDir(dir); err != nil {
		return "", err
	}
	if err := a.cfg.Save(); err != nil {
		a.logger.Warn().Err(err).Msg("Couldn't save the game folder")
	}
	return a.cfg.GameDir, nil
}

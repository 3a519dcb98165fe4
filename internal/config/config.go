package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/ini.v1"
)

// FileName is the settings file kept next to the binary.
const FileName = "split.ini"

const (
	sectionPaths = "Paths"
	sectionPatch = "Patch"
	sectionSound = "Sound"
)

var validate = validator.New()

// Config holds the persisted settings. Environment variables override
// whatever split.ini says.
type Config struct {
	// GameDir is the installation to patch; it may be unset or stale, in
	// which case the user is asked for it again.
	GameDir string `env:"SPLIT_GAME_DIR"`
	ModsDir string `env:"SPLIT_MODS_DIR" validate:"required"`
	// XDelta is the decoder binary, a bare name is looked up in PATH.
	XDelta string `env:"SPLIT_XDELTA" validate:"required"`
	// LaunchWithoutPatches is always, never or ask.
	LaunchWithoutPatches string `env:"SPLIT_LAUNCH_WITHOUT_PATCHES" validate:"oneof=always never ask"`
	Sound                bool   `env:"SPLIT_SOUND"`
	SoundDir             string `env:"SPLIT_SOUND_DIR"`

	path string
}

// Default returns the settings used when split.ini is missing. Relative
// directories are resolved against baseDir.
func Default(baseDir string) *Config {
	return &Config{
		ModsDir:              filepath.Join(baseDir, "mods"),
		XDelta:               "xdelta3",
		LaunchWithoutPatches: "always",
		Sound:                true,
		SoundDir:             filepath.Join(baseDir, "sounds"),
		path:                 filepath.Join(baseDir, FileName),
	}
}

// Load reads path (a missing file yields the defaults), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	baseDir := filepath.Dir(path)
	cfg := Default(baseDir)
	cfg.path = path

	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	switch {
	case err == nil:
		cfg.read(file, baseDir)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) read(file *ini.File, baseDir string) {
	paths := file.Section(sectionPaths)
	c.GameDir = paths.Key("game_dir").MustString(c.GameDir)
	if dir := paths.Key("mods_dir").String(); dir != "" {
		c.ModsDir = resolve(baseDir, dir)
	}

	p := file.Section(sectionPatch)
	c.XDelta = p.Key("xdelta").MustString(c.XDelta)
	c.LaunchWithoutPatches = p.Key("launch_without_patches").MustString(c.LaunchWithoutPatches)

	s := file.Section(sectionSound)
	c.Sound = s.Key("enabled").MustBool(c.Sound)
	if dir := s.Key("dir").String(); dir != "" {
		c.SoundDir = resolve(baseDir, dir)
	}
}

func resolve(baseDir, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir, dir)
}

// Validate checks the settings that must always hold
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid setting %s: %q fails %q", fe.Field(), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// HasGameDir reports whether GameDir points at an existing directory
func (c *Config) HasGameDir() bool {
	return validate.Var(c.GameDir, "required,dir") == nil
}

// Path returns where the settings are stored
func (c *Config) Path() string {
	return c.path
}

// Save writes the settings back to split.ini, keeping any keys it doesn't know about
func (c *Config) Save() error {
	file, err := ini.LoadSources(ini.LoadOptions{Loose: true, IgnoreInlineComment: true}, c.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(c.path), err)
	}

	paths := file.Section(sectionPaths)
	paths.Key("game_dir").SetValue(c.GameDir)
	paths.Key("mods_dir").SetValue(c.ModsDir)

	p := file.Section(sectionPatch)
	p.Key("xdelta").SetValue(c.XDelta)
	p.Key("launch_without_patches").SetValue(c.LaunchWithoutPatches)

	s := file.Section(sectionSound)
	s.Key("enabled").SetValue(fmt.Sprint(c.Sound))
	s.Key("dir").SetValue(c.SoundDir)

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := file.SaveTo(c.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(c.path), err)
	}
	return nil
}

// SetGameDir validates dir and stores it
func (c *Config) SetGameDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := validate.Var(abs, "required,dir"); err != nil {
		return fmt.Errorf("%s is not a directory", abs)
	}
	c.GameDir = abs
	return nil
}

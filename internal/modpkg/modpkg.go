package modpkg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/poachedegg12/SplitProject/internal/paths"
)

// ErrNotModPackage is returned when a directory can't be read as a mod package
var ErrNotModPackage = errors.New("not a mod package")

const (
	// PatchExt marks delta patch files inside a mod package.
	PatchExt = ".xdelta"
	// MetadataFile holds the optional [Mod] description of a package.
	MetadataFile = "mod.ini"
	// ThumbnailFile is shown next to the mod in listings.
	ThumbnailFile = "thumbnail.jpg"
)

var (
	// AssetDirs are replaced wholesale in the installation when the mod ships them.
	AssetDirs = []string{"lang", "sound"}

	// IntegrationFiles are copied over the installation's copy when the mod ships them.
	IntegrationFiles = []string{"NekoPresence.dll", "NekoPresence_x64.dll"}
)

// Metadata is the display information from mod.ini. The patch pipeline never reads it.
type Metadata struct {
	Name          string
	Description   string
	VideoLink     string
	Author        string
	DateMade      string
	Version       string
	GameVersion   string
	LikeCount     int
	DownloadCount int
	Link          string
}

// Package is a mod directory as seen by the patcher.
type Package struct {
	Dir string
	// Patches are delta patch file names, sorted.
	Patches []string
	// AssetDirs lists which of AssetDirs the mod ships.
	AssetDirs []string
	// IntegrationFiles lists which of IntegrationFiles the mod ships.
	IntegrationFiles []string
	// Metadata is nil when the package has no readable mod.ini.
	Metadata     *Metadata
	HasThumbnail bool
}

// Load reads the mod package at dir
func Load(dir string) (*Package, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotModPackage, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotModPackage, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mod directory: %w", err)
	}

	pkg := &Package{Dir: dir}
	var patches []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && paths.HasExt(entry.Name(), PatchExt) {
			patches = append(patches, entry.Name())
		}
	}
	pkg.Patches = paths.SortNames(patches)

	for _, name := range AssetDirs {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.IsDir() {
			pkg.AssetDirs = append(pkg.AssetDirs, name)
		}
	}
	for _, name := range IntegrationFiles {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.Mode().IsRegular() {
			pkg.IntegrationFiles = append(pkg.IntegrationFiles, name)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, ThumbnailFile)); err == nil {
		pkg.HasThumbnail = true
	}

	if iniPath := findMetadata(dir); iniPath != "" {
		if meta, err := LoadMetadata(iniPath); err == nil {
			pkg.Metadata = meta
		}
	}

	return pkg, nil
}

// Name returns the display name of the package
func (p *Package) Name() string {
	if p.Metadata != nil && p.Metadata.Name != "" {
		return p.Metadata.Name
	}
	return filepath.Base(p.Dir)
}

// PatchPath returns the absolute location of a patch file
func (p *Package) PatchPath(name string) string {
	return filepath.Join(p.Dir, name)
}

// findMetadata looks for mod.ini anywhere in the package; archives are often
// unpacked with an extra top-level folder.
func findMetadata(dir string) string {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), MetadataFile) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// LoadMetadata parses the [Mod] section of a mod.ini file
func LoadMetadata(path string) (*Metadata, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", MetadataFile, err)
	}

	sec, err := cfg.GetSection("Mod")
	if err != nil {
		return nil, fmt.Errorf("%s has no [Mod] section", MetadataFile)
	}

	return &Metadata{
		Name:          sec.Key("name").MustString("Unknown Mod"),
		Description:   sec.Key("description").String(),
		VideoLink:     sec.Key("video_link").String(),
		Author:        sec.Key("author").String(),
		DateMade:      sec.Key("date_made").String(),
		Version:       sec.Key("version").String(),
		GameVersion:   sec.Key("game_version").String(),
		LikeCount:     sec.Key("like_count").MustInt(0),
		DownloadCount: sec.Key("download_count").MustInt(0),
		Link:          sec.Key("link").String(),
	}, nil
}

// SaveMetadata writes meta as the [Mod] section of dir/mod.ini
func SaveMetadata(dir string, meta *Metadata) error {
	cfg := ini.Empty()
	sec, err := cfg.NewSection("Mod")
	if err != nil {
		return err
	}

	fields := []struct{ key, value string }{
		{"name", meta.Name},
		{"description", meta.Description},
		{"video_link", meta.VideoLink},
		{"author", meta.Author},
		{"date_made", meta.DateMade},
		{"version", meta.Version},
		{"game_version", meta.GameVersion},
		{"like_count", fmt.Sprint(meta.LikeCount)},
		{"download_count", fmt.Sprint(meta.DownloadCount)},
		{"link", meta.Link},
	}
	for _, f := range fields {
		if _, err := sec.NewKey(f.key, f.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", f.key, err)
		}
	}

	if err := cfg.SaveTo(filepath.Join(dir, MetadataFile)); err != nil {
		return fmt.Errorf("failed to write %s: %w", MetadataFile, err)
	}
	return nil
}

// List loads every mod package directly under modsDir. Unreadable entries are skipped.
func List(modsDir string) ([]*Package, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mods directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	var mods []*Package
	for _, name := range paths.SortNames(names) {
		pkg, err := Load(filepath.Join(modsDir, name))
		if err != nil {
			continue
		}
		mods = append(mods, pkg)
	}
	return mods, nil
}

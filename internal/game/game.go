package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poachedegg12/SplitProject/internal/paths"
)

// ErrNotInstallation is returned when a directory can't be used as a game installation
var ErrNotInstallation = errors.New("not a game installation")

// DataFile is the primary data file backed up alongside the main executable.
const DataFile = "data.win"

var (
	// TargetExts are the extensions of files a delta patch may target.
	TargetExts = []string{".exe", ".win"}

	// installerMarkers exclude installers and uninstallers from executable candidates.
	installerMarkers = []string{"unins", "setup"}
)

// Installation is a snapshot of the files in a game directory that the patcher cares about.
type Installation struct {
	Dir string
	// Targets are the regular files a patch may target, sorted by name.
	Targets []string
	// Executables are the launchable candidates, sorted by name.
	Executables []string
	// DataFile is the actual name of the primary data file, or "" when absent.
	DataFile string
}

// Scan reads dir and classifies its top-level files
func Scan(dir string) (*Installation, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInstallation, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotInstallation, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read game directory: %w", err)
	}

	var targets, executables []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !paths.HasExt(name, TargetExts...) {
			continue
		}
		targets = append(targets, name)
		if IsExecutable(name) {
			executables = append(executables, name)
		}
	}

	inst := &Installation{
		Dir:         dir,
		Targets:     paths.SortNames(targets),
		Executables: paths.SortNames(executables),
	}
	if found, ok := paths.FindActual(dir, DataFile); ok {
		inst.DataFile = filepath.Base(found)
	}

	return inst, nil
}

// IsExecutable reports whether name is a launchable game executable rather than an installer
func IsExecutable(name string) bool {
	if !paths.HasExt(name, ".exe") {
		return false
	}
	lower := strings.ToLower(name)
	for _, marker := range installerMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// Path returns the absolute location of a file in the installation
func (i *Installation) Path(name string) string {
	return filepath.Join(i.Dir, name)
}

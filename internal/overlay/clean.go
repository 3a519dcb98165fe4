package overlay

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LeftoverExt marks gettext translation sources. The game only reads the
// compiled files, so stale sources only confuse translation mods.
const LeftoverExt = ".po"

// CleanResult is the outcome of a leftover sweep.
type CleanResult struct {
	Removed []string
	Errors  []error
}

// Clean deletes every regular file under root whose name ends in ext.
// Individual failures are collected and the sweep carries on.
func Clean(root, ext string) CleanResult {
	var res CleanResult

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			res.Errors = append(res.Errors, fmt.Errorf("failed to scan %s: %w", path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}

		if err := os.Remove(path); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("failed to delete %s: %w", d.Name(), err))
			return nil
		}
		res.Removed = append(res.Removed, path)
		return nil
	})
	if walkErr != nil {
		res.Errors = append(res.Errors, fmt.Errorf("failed to scan %s: %w", root, walkErr))
	}

	return res
}

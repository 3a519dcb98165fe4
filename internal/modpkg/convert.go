package modpkg

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DataPatchName is the conventional name of a patch targeting data.win.
	DataPatchName = "data.win" + PatchExt
	// ExePatchName is the conventional name of a patch targeting the executable.
	ExePatchName = "exe" + PatchExt
)

// ConvertOptions names the patches to rename inside a mod folder. Either may be empty.
type ConvertOptions struct {
	DataPatch string
	ExePatch  string
	// Metadata, when set, is written to mod.ini.
	Metadata *Metadata
}

// Convert makes a loose mod folder usable by the patcher by giving its patches
// the names the matcher recognizes and optionally writing mod.ini.
func Convert(dir string, opts ConvertOptions) error {
	renames := []struct{ from, to string }{
		{opts.DataPatch, DataPatchName},
		{opts.ExePatch, ExePatchName},
	}

	for _, r := range renames {
		if r.from == "" {
			continue
		}
		from := r.from
		if !filepath.IsAbs(from) {
			from = filepath.Join(dir, from)
		}
		if _, err := os.Stat(from); err != nil {
			return fmt.Errorf("failed to find patch %s: %w", r.from, err)
		}
		to := filepath.Join(dir, r.to)
		if from == to {
			continue
		}
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to rename %s: %w", filepath.Base(from), err)
		}
	}

	if opts.Metadata != nil {
		if err := SaveMetadata(dir, opts.Metadata); err != nil {
			return err
		}
	}

	return nil
}

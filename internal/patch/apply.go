package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poachedegg12/SplitProject/internal/delta"
)

// Validator dry-runs patches so incompatible ones are skipped before anything is touched.
type Validator struct {
	Codec delta.Codec
	// TempDir receives the discarded output; "" uses the system temp dir.
	TempDir string
}

// Validate reports whether patch decodes against target. The decoded output
// is always removed before returning.
func (v *Validator) Validate(ctx context.Context, target, patch string) bool {
	tmp, err := os.CreateTemp(v.TempDir, "split-validate-*.tmp")
	if err != nil {
		return false
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	return v.Codec.Decode(ctx, target, patch, tmpPath) == nil
}

// Applier commits patches by decoding into a sibling temp file and renaming it
// over the target, so the target is either untouched or fully replaced.
type Applier struct {
	Codec delta.Codec
}

// Apply replaces target with the result of decoding patch against it
func (a *Applier) Apply(ctx context.Context, target, patch string) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat target: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := a.Codec.Decode(ctx, target, patch, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(target), err)
	}

	return nil
}

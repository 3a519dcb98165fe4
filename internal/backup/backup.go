package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Suffix is appended to an original's path to name its snapshot.
const Suffix = ".bak"

// Record tracks one original file and its pre-patch snapshot.
type Record struct {
	Original string `json:"original"`
	Backup   string `json:"backup"`
	Restored bool   `json:"restored"`
}

// Manager snapshots critical files before they are mutated.
type Manager struct {
	// Journal, when set, is updated after every successful backup so an
	// interrupted session can be recovered later.
	Journal *Journal
}

// Backup copies path to path+".bak", preserving content, permissions and
// modification time. It returns (nil, nil) when path does not exist.
func (m *Manager) Backup(path string) (*Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("failed to back up %s: not a regular file", filepath.Base(path))
	}

	rec := &Record{Original: path, Backup: path + Suffix}
	if err := CopyFile(path, rec.Backup); err != nil {
		return nil, fmt.Errorf("failed to back up %s: %w", filepath.Base(path), err)
	}

	if m.Journal != nil {
		if err := m.Journal.Add(*rec); err != nil {
			// The snapshot exists; losing the journal only affects crash recovery.
			return rec, fmt.Errorf("backed up %s but failed to update journal: %w", filepath.Base(path), err)
		}
	}

	return rec, nil
}

// Restore moves the snapshot back over the original and marks the record restored.
// Restoring an already restored record is a no-op.
func (r *Record) Restore() error {
	if r.Restored {
		return nil
	}
	if err := os.Rename(r.Backup, r.Original); err != nil {
		return fmt.Errorf("failed to restore %s: %w", filepath.Base(r.Original), err)
	}
	r.Restored = true
	return nil
}

// RestoreAll restores every record that isn't restored yet. A failure is
// collected and the remaining records are still attempted.
func RestoreAll(records []*Record) []error {
	var errs []error
	for _, rec := range records {
		if err := rec.Restore(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// CopyFile copies src to dst through a temp sibling so dst is never left half written.
// Permissions and modification time are carried over.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Leftovers lists the snapshot files in dir, sorted by name. Recover only
// handles snapshots named in a journal; anything else is reported here.
func Leftovers(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), Suffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

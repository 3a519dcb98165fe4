package overlay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/poachedegg12/SplitProject/internal/backup"
)

// Kind distinguishes overlaid directories from single files.
type Kind int

const (
	Dir Kind = iota
	File
)

func (k Kind) String() string {
	if k == File {
		return "file"
	}
	return "directory"
}

// Item is the outcome of overlaying one asset.
type Item struct {
	Name string
	Kind Kind
	Err  error
}

// Plan lists the assets of a mod package to carry into the installation.
type Plan struct {
	ModDir  string
	GameDir string
	// Dirs are replaced wholesale: the installation copy is removed first.
	Dirs []string
	// Files are copied over the installation copy.
	Files []string
}

// Apply overlays every asset in the plan. A failed item doesn't stop the others.
func Apply(p Plan) []Item {
	var items []Item

	for _, name := range p.Dirs {
		err := ReplaceDir(filepath.Join(p.ModDir, name), filepath.Join(p.GameDir, name))
		items = append(items, Item{Name: name, Kind: Dir, Err: err})
	}

	for _, name := range p.Files {
		err := backup.CopyFile(filepath.Join(p.ModDir, name), filepath.Join(p.GameDir, name))
		if err != nil {
			err = fmt.Errorf("failed to copy %s: %w", name, err)
		}
		items = append(items, Item{Name: name, Kind: File, Err: err})
	}

	return items
}

// ReplaceDir makes dst an exact copy of src. Anything in dst that src
// doesn't have is gone afterwards.
func ReplaceDir(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(src), err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to copy %s: not a directory", filepath.Base(src))
	}

	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to remove old %s: %w", filepath.Base(dst), err)
	}

	if err := CopyDir(src, dst); err != nil {
		return fmt.Errorf("failed to copy %s: %w", filepath.Base(src), err)
	}
	return nil
}

// CopyDir recursively copies src to dst, preserving file modes and modification times
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type().IsRegular():
			return backup.CopyFile(path, target)
		default:
			// Symlinks and devices have no business in a mod package.
			return errors.New("unsupported file type: " + rel)
		}
	})
}

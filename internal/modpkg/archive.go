package modpkg

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poachedegg12/SplitProject/internal/paths"
)

// ProgressFunc is called during extraction with current file index and total files.
type ProgressFunc func(current, total int, filename string)

// ExtractArchive unpacks a mod zip into targetDir. A single top-level folder
// shared by every entry is stripped so the mod's files land directly in targetDir.
func ExtractArchive(archivePath, targetDir string, progress ProgressFunc) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open mod archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create mod directory: %w", err)
	}

	stripPrefix := detectStripPrefix(reader.File)
	total := len(reader.File)

	for i, f := range reader.File {
		relPath := strings.TrimPrefix(f.Name, stripPrefix)
		if relPath == "" {
			continue
		}

		if progress != nil {
			progress(i+1, total, relPath)
		}

		absTarget, err := paths.Within(targetDir, filepath.Join(targetDir, paths.Denormalize(relPath)))
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(absTarget, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", relPath, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(absTarget), 0755); err != nil {
			return fmt.Errorf("failed to create parent dir for %s: %w", relPath, err)
		}

		if err := extractFile(f, absTarget); err != nil {
			return fmt.Errorf("failed to extract %s: %w", relPath, err)
		}
	}

	return nil
}

// detectStripPrefix finds a top-level directory common to every entry
func detectStripPrefix(files []*zip.File) string {
	if len(files) == 0 {
		return ""
	}

	firstPath := files[0].Name
	idx := strings.Index(firstPath, "/")
	if idx == -1 {
		return ""
	}

	prefix := firstPath[:idx+1]
	for _, f := range files {
		if !strings.HasPrefix(f.Name, prefix) {
			return ""
		}
	}

	return prefix
}

func extractFile(f *zip.File, targetPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

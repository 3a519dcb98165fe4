package download

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"

	"github.com/poachedegg12/SplitProject/internal/modpkg"
	"github.com/poachedegg12/SplitProject/internal/paths"
)

var client = grab.NewClient()

// ErrModExists is returned when the destination mod folder is already present
var ErrModExists = errors.New("mod already installed")

// ProgressCallback is called during download with progress info
type ProgressCallback func(bytesComplete, totalBytes int64, percentage int)

// FileWithProgress downloads a file from url to targetPath, reporting progress
// every 100ms until the transfer ends or ctx is cancelled.
func FileWithProgress(ctx context.Context, url, targetPath string, callback ProgressCallback) error {
	req, err := grab.NewRequest(targetPath, url)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true // Always overwrite, never resume

	resp := client.Do(req)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	lastPercentage := -1
loop:
	for {
		select {
		case <-ticker.C:
			if callback != nil {
				var percentage int
				if resp.Size() > 0 {
					percentage = int(resp.Progress() * 100)
				}
				if percentage != lastPercentage {
					callback(resp.BytesComplete(), resp.Size(), percentage)
					lastPercentage = percentage
				}
			}
		case <-resp.Done:
			if callback != nil && resp.Size() > 0 {
				callback(resp.BytesComplete(), resp.Size(), 100)
			}
			break loop
		}
	}

	if err := resp.Err(); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	return nil
}

// ToTemp downloads url into a fresh temp file and returns its path
func ToTemp(ctx context.Context, url, prefix string, callback ProgressCallback) (string, error) {
	tempFile, err := os.CreateTemp("", prefix+"*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := FileWithProgress(ctx, url, tempPath, callback); err != nil {
		_ = os.Remove(tempPath) // Best effort cleanup
		return "", err
	}

	return tempPath, nil
}

// ModName derives a folder name for a mod archive from its URL
func ModName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	base := path.Base(u.Path)
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("can't name a mod after %q", rawURL)
	}
	return name, nil
}

// Options controls where a fetched mod ends up.
type Options struct {
	// Name overrides the folder name derived from the URL.
	Name string
	// Progress receives download progress.
	Progress ProgressCallback
	// Extract receives unpacking progress.
	Extract modpkg.ProgressFunc
}

// Mod downloads a zipped mod package and unpacks it into its own folder
// under modsDir. It returns the loaded package.
func Mod(ctx context.Context, rawURL, modsDir string, opts Options) (*modpkg.Package, error) {
	name := opts.Name
	if name == "" {
		var err error
		if name, err = ModName(rawURL); err != nil {
			return nil, err
		}
	}

	target, err := paths.Within(modsDir, filepath.Join(modsDir, name))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(target); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrModExists, name)
	}

	archive, err := ToTemp(ctx, rawURL, "split-mod-", opts.Progress)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archive)

	if err := os.MkdirAll(target, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mod folder: %w", err)
	}
	if err := modpkg.ExtractArchive(archive, target, opts.Extract); err != nil {
		_ = os.RemoveAll(target)
		return nil, fmt.Errorf("failed to unpack %s: %w", name, err)
	}

	return modpkg.Load(target)
}

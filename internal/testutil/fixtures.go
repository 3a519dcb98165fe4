package testutil

import (
	"path/filepath"
	"testing"
)

// NewGameDir creates an installation directory populated with files (name -> content)
func NewGameDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "game")
	for name, content := range files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}

// NewModDir creates a mod package directory populated with files (name -> content)
func NewModDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "mod")
	WriteFile(t, filepath.Join(dir, ".keep"), "")
	for name, content := range files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}

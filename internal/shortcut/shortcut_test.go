package shortcut

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestForMod tests the shortcut built for a mod
func TestForMod(t *testing.T) {
	exe := filepath.Join("tools", "split", "split.exe")
	s := ForMod(exe, "Hard Mode")

	assert.Equal(t, "Split - Hard Mode", s.Name)
	assert.Equal(t, exe, s.Target)
	assert.Equal(t, `play "Hard Mode"`, s.Arguments)
	assert.Equal(t, filepath.Join("tools", "split"), s.WorkingDir)
}

// TestFileName tests that names are made safe for the file system
func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Split - Hard Mode", "Split - Hard Mode.lnk"},
		{`Split - A/B: "C"?`, "Split - A_B_ _C__.lnk"},
		{"trailing dots...", "trailing dots.lnk"},
		{"  ", "Split.lnk"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.name), "FileName(%q)", tt.name)
	}
}

// TestDesktopDir tests desktop discovery including the OneDrive location
func TestDesktopDir(t *testing.T) {
	profile := t.TempDir()
	t.Setenv("USERPROFILE", profile)

	_, err := DesktopDir()
	assert.Error(t, err, "no desktop yet")

	oneDrive := filepath.Join(profile, "OneDrive", "Desktop")
	require.NoError(t, os.MkdirAll(oneDrive, 0755))
	got, err := DesktopDir()
	require.NoError(t, err)
	assert.Equal(t, oneDrive, got)

	local := filepath.Join(profile, "Desktop")
	require.NoError(t, os.Mkdir(local, 0755))
	got, err = DesktopDir()
	require.NoError(t, err)
	assert.Equal(t, local, got, "the local desktop wins")

	t.Setenv("USERPROFILE", "")
	_, err = DesktopDir()
	assert.Error(t, err)
}

// TestCreate_Unsupported tests that other systems get a clear error
func TestCreate_Unsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shortcuts are supported here")
	}

	dir := t.TempDir()
	_, err := Create(dir, ForMod("/usr/local/bin/split", "Hard Mode"))
	assert.True(t, errors.Is(err, ErrUnsupported))

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
	assert.Empty(t, Target(filepath.Join(dir, "missing.lnk")))
}

// TestCreate_Windows tests a real shortcut round trip
func TestCreate_Windows(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("requires Windows")
	}
	if testing.Short() {
		t.Skip("skipping COM test in short mode")
	}

	dir := t.TempDir()
	exe, err := os.Executable()
	require.NoError(t, err)

	path, err := Create(dir, ForMod(exe, "Hard Mode"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Split - Hard Mode.lnk"), path)
	assert.FileExists(t, path)
	assert.True(t, filepath.Clean(Target(path)) == filepath.Clean(exe), "target = %q", Target(path))
}

package delta

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestXDelta_MissingBinary tests that a missing codec is reported, not run
func TestXDelta_MissingBinary(t *testing.T) {
	x := NewXDelta(filepath.Join(t.TempDir(), "no-such-xdelta"))

	if x.Available() {
		t.Error("Available() = true for a missing binary")
	}

	err := x.Decode(context.Background(), "src", "patch", "out")
	if !errors.Is(err, ErrCodecUnavailable) {
		t.Errorf("Decode() error = %v, want ErrCodecUnavailable", err)
	}
}

// TestNewXDelta_Default tests the default binary name
func TestNewXDelta_Default(t *testing.T) {
	if got := NewXDelta("").BinPath; got != DefaultBinary {
		t.Errorf("NewXDelta(\"\").BinPath = %q, want %q", got, DefaultBinary)
	}
}

// TestXDelta_RoundTrip_Integration encodes a patch with the real binary and decodes it back
func TestXDelta_RoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	bin, err := exec.LookPath(DefaultBinary)
	if err != nil {
		t.Skip("xdelta3 not installed")
	}

	dir := t.TempDir()
	source := filepath.Join(dir, "data.win")
	target := filepath.Join(dir, "data.win.new")
	patch := filepath.Join(dir, "data.win.xdelta")
	output := filepath.Join(dir, "decoded")

	if err := os.WriteFile(source, []byte("original game data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("modded game data!!"), 0644); err != nil {
		t.Fatal(err)
	}
	if out, err := exec.Command(bin, "-e", "-f", "-s", source, target, patch).CombinedOutput(); err != nil {
		t.Fatalf("failed to encode test patch: %v: %s", err, out)
	}

	x := NewXDelta(bin)
	if err := x.Decode(context.Background(), source, patch, output); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	got, _ := os.ReadFile(output)
	if string(got) != "modded game data!!" {
		t.Errorf("decoded = %q, want %q", got, "modded game data!!")
	}

	// Decoding against the wrong source must fail
	wrong := filepath.Join(dir, "other.win")
	if err := os.WriteFile(wrong, []byte("something else entirely"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := x.Decode(context.Background(), wrong, patch, output); !errors.Is(err, ErrDecode) {
		t.Errorf("Decode() with wrong source error = %v, want ErrDecode", err)
	}
}

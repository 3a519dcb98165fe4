package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poachedegg12/SplitProject/internal/delta"
)

// fakeMagic starts every patch understood by FakeCodec.
const fakeMagic = "FAKEDELTA|"

// FakePatch builds a patch that FakeCodec decodes to output, but only against
// a source whose content is exactly source.
func FakePatch(source, output string) []byte {
	return []byte(fakeMagic + source + "|" + output)
}

// WriteFakePatch writes a FakePatch to path
func WriteFakePatch(t *testing.T, path, source, output string) {
	t.Helper()
	WriteFile(t, path, string(FakePatch(source, output)))
}

// FakeCodec is a delta.Codec with a trivial self-describing patch format.
type FakeCodec struct {
	// FailMidWrite writes half of the output and then fails, like a codec
	// that crashes partway through.
	FailMidWrite bool

	mu    sync.Mutex
	calls []string
}

// Decode implements delta.Codec
func (c *FakeCodec) Decode(ctx context.Context, source, patch, output string) error {
	c.mu.Lock()
	c.calls = append(c.calls, filepath.Base(patch))
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	patchData, err := os.ReadFile(patch)
	if err != nil {
		return fmt.Errorf("%w: %v", delta.ErrDecode, err)
	}
	sourceData, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("%w: %v", delta.ErrDecode, err)
	}

	if !bytes.HasPrefix(patchData, []byte(fakeMagic)) {
		return fmt.Errorf("%w: %s is not a patch", delta.ErrDecode, filepath.Base(patch))
	}
	parts := bytes.SplitN(patchData[len(fakeMagic):], []byte("|"), 2)
	if len(parts) != 2 {
		return fmt.Errorf("%w: %s is truncated", delta.ErrDecode, filepath.Base(patch))
	}
	if !bytes.Equal(parts[0], sourceData) {
		return fmt.Errorf("%w: source checksum mismatch", delta.ErrDecode)
	}

	if c.FailMidWrite {
		half := parts[1][:len(parts[1])/2]
		_ = os.WriteFile(output, half, 0644)
		return fmt.Errorf("%w: unexpected end of patch", delta.ErrDecode)
	}

	return os.WriteFile(output, parts[1], 0644)
}

// Calls returns the base names of the patches decoded so far
func (c *FakeCodec) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Launch records one call to FakeRunner.Run
type Launch struct {
	Exe string
	Dir string
}

// FakeRunner stands in for the game process.
type FakeRunner struct {
	ExitCode int
	Err      error
	// OnRun is called while the "game" is running, before Run returns.
	OnRun func(exe, dir string)

	mu       sync.Mutex
	launches []Launch
}

// Run implements the session's launcher
func (r *FakeRunner) Run(exe, dir string) (int, error) {
	r.mu.Lock()
	r.launches = append(r.launches, Launch{Exe: exe, Dir: dir})
	r.mu.Unlock()

	if r.Err != nil {
		return -1, r.Err
	}
	if r.OnRun != nil {
		r.OnRun(exe, dir)
	}
	return r.ExitCode, nil
}

// Launches returns the recorded launches
func (r *FakeRunner) Launches() []Launch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Launch(nil), r.launches...)
}

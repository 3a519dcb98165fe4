package delta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrDecode means the patch could not be decoded against the source file.
	ErrDecode = errors.New("delta decode failed")

	// ErrCodecUnavailable means the xdelta binary could not be located.
	ErrCodecUnavailable = errors.New("xdelta binary not found")
)

// DefaultBinary is the xdelta executable looked up when none is configured.
const DefaultBinary = "xdelta3"

// Codec reconstructs a target file from a source file and a delta patch.
type Codec interface {
	// Decode writes the decoded result of applying patch to source into output.
	// output is created or truncated; on failure its contents are undefined.
	Decode(ctx context.Context, source, patch, output string) error
}

// XDelta decodes VCDIFF patches by driving an external xdelta3 binary.
type XDelta struct {
	// Where to find the xdelta binary. If just a basename without directory
	// it is looked up in PATH and then in the current directory.
	BinPath string
}

// NewXDelta returns a codec for the given binary, falling back to DefaultBinary.
func NewXDelta(binPath string) *XDelta {
	if binPath == "" {
		binPath = DefaultBinary
	}
	return &XDelta{BinPath: binPath}
}

// Available reports whether the xdelta binary can be located
func (x *XDelta) Available() bool {
	_, err := x.resolve()
	return err == nil
}

func (x *XDelta) resolve() (string, error) {
	bin := x.BinPath
	if bin == "" {
		bin = DefaultBinary
	}

	if filepath.Base(bin) != bin {
		if _, err := os.Stat(bin); err != nil {
			return "", fmt.Errorf("%w: %s", ErrCodecUnavailable, bin)
		}
		return bin, nil
	}

	if found, err := exec.LookPath(bin); err == nil {
		return found, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCodecUnavailable, bin)
	}
	for _, candidate := range []string{bin, bin + ".exe"} {
		local := filepath.Join(cwd, candidate)
		if info, err := os.Stat(local); err == nil && !info.IsDir() {
			return local, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrCodecUnavailable, bin)
}

// Decode runs "xdelta3 -d -f -s source patch output".
func (x *XDelta) Decode(ctx context.Context, source, patch, output string) error {
	bin, err := x.resolve()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, bin, "-d", "-f", "-s", source, patch, output)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(patch), err)
		}
		return fmt.Errorf("%w: %s: %s", ErrDecode, filepath.Base(patch), msg)
	}

	return nil
}

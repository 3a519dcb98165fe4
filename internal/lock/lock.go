package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName is the lock file created inside the game directory while a
// session owns it.
const FileName = ".split.lock"

// ErrLocked is returned when another session already holds the lock
var ErrLocked = errors.New("game directory is in use by another session")

// Lock is an exclusive claim on a game directory.
type Lock struct {
	path string
}

// Acquire claims dir for the current process. The lock file records the
// owner's PID; a lock whose owner is no longer running is taken over.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)

	f, err := create(path)
	if errors.Is(err, os.ErrExist) {
		pid, stale := Stale(dir)
		if !stale {
			if pid > 0 {
				return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
			}
			return nil, ErrLocked
		}
		if err := Break(dir); err != nil {
			return nil, err
		}
		f, err = create(path)
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", errors.Join(werr, cerr))
	}

	return &Lock{path: path}, nil
}

func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Owner reads the PID recorded in dir's lock file.
func Owner(dir string) (int, bool) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// Stale reports whether dir's lock file names a process that is no longer
// running. A missing or unreadable lock file is never stale.
func Stale(dir string) (int, bool) {
	pid, ok := Owner(dir)
	if !ok {
		return 0, false
	}
	return pid, pid != os.Getpid() && !processAlive(pid)
}

// Break removes a lock left behind by a session that died.
func Break(dir string) error {
	err := os.Remove(filepath.Join(dir, FileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

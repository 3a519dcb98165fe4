package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrLaunch is returned when the game process could not be started
var ErrLaunch = errors.New("failed to launch game")

// Launcher starts the game and blocks until it exits.
type Launcher interface {
	Run(exe, dir string) (exitCode int, err error)
}

// Runner launches executables as child processes.
type Runner struct {
	// Args are passed to the executable.
	Args []string
	// Env, when non-nil, replaces the inherited environment.
	Env []string
	// Stdout and Stderr default to the launcher's own.
	Stdout *os.File
	Stderr *os.File
}

// Run starts exe with dir as its working directory and waits for it to exit.
// There is no timeout: a game that never exits blocks forever. A non-zero
// exit code is returned with a nil error.
func (r *Runner) Run(exe, dir string) (int, error) {
	info, err := os.Stat(exe)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	if info.IsDir() {
		return -1, fmt.Errorf("%w: %s is a directory", ErrLaunch, exe)
	}

	cmd := exec.Command(exe, r.Args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed waiting for game: %w", err)
	}

	return 0, nil
}

// wmicArgs lists the path of every running process. Names are compared after
// listing; a WQL where clause would break on quotes in file names.
var wmicArgs = []string{"process", "get", "ExecutablePath", "/format:list"}

// IsRunningFromDir checks if exeName is running from the specified directory.
// Only Windows can answer; elsewhere it always reports false.
func IsRunningFromDir(targetDir, exeName string) bool {
	if runtime.GOOS != "windows" {
		return false
	}

	expectedPath := strings.ToLower(filepath.Clean(filepath.Join(targetDir, exeName)))

	cmd := exec.Command("wmic", wmicArgs...)
	output, err := cmd.Output()
	if err != nil {
		return false
	}

	return containsExecutablePath(string(output), expectedPath)
}

// containsExecutablePath parses wmic list output ("ExecutablePath=C:\path\to\game.exe")
func containsExecutablePath(output, expectedPath string) bool {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ExecutablePath=") {
			continue
		}
		processPath := strings.TrimPrefix(line, "ExecutablePath=")
		if strings.ToLower(filepath.Clean(processPath)) == expectedPath {
			return true
		}
	}
	return false
}

//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

// processAlive sends signal 0, which checks existence without affecting the process.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	// EPERM: the process exists but belongs to someone else
	return err == nil || errors.Is(err, syscall.EPERM)
}

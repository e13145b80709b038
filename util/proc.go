package util

import (
	"errors"
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given pid exists.
// Zombie processes that were not reaped yet count as alive.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// the process exists, but belongs to another user
	return errors.Is(err, syscall.EPERM)
}

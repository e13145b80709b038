package shell

import (
	"errors"
	"fmt"
)

// ExitError ends a shell run with the given exit code. Err is the
// cause, if the run failed.
type ExitError struct {
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shell exited with %d: %s", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("shell exited with %d", e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(exitCode int) *ExitError {
	return &ExitError{ExitCode: exitCode}
}

// newFailure returns an exit error with code 1 caused by err.
func newFailure(err error) *ExitError {
	return &ExitError{ExitCode: 1, Err: err}
}

func IsExitError(err error) bool {
	if err == nil {
		return false
	}

	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

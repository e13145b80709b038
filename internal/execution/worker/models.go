package worker

import (
	"errors"
	"time"
)

var (
	ErrKillTimeout          = errors.New("kill timeout")
	ErrWorkerNotStarted     = errors.New("worker not started")
	ErrWorkerAlreadyStarted = errors.New("worker already started")
	ErrUnexpectedMessageID  = errors.New("unexpected message id")
)

type StartConfig struct {
	// Cmd is the path or name of the binary to execute
	Cmd string `conf:"cmd"`

	// Cwd is the working directory in which
	// the binary should be executed
	Cwd string `conf:"cwd"`

	// Args is the list of arguments to pass to the command
	Args []string `conf:"args"`

	// Env is a map of environment variables set on top
	// of the inherited environment when running the command
	Env map[string]string `conf:"env"`
}

type StopConfig struct {
	// Timeout is the duration to wait for the worker to stop
	// before it is killed
	Timeout time.Duration `conf:"timeout"`
}

type SendConfig struct {
	// Timeout is the duration to wait for the worker to respond
	Timeout time.Duration `conf:"timeout"`
}

type ExitEvent struct {
	// Code is the exit code of the process
	Code *int

	// Signal is the signal that caused the process to exit
	Signal *int

	// Stderr is the stderr output of the process
	Stderr string
}

// Failed reports whether the process exited with a non-zero
// exit code or was terminated by a signal.
func (e ExitEvent) Failed() bool {
	return e.Signal != nil || (e.Code != nil && *e.Code != 0)
}

// Message is the envelope exchanged with worker processes,
// one JSON document per message.
type Message[T any] struct {
	// ID is the message identifier
	ID int `json:"id"`

	// Data is the message payload
	Data T `json:"data"`
}

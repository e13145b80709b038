package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type Worker[I, O any] interface {
	Start(context.Context, StartConfig) error
	Terminate() error
	Kill() error
	Send(context.Context, I, SendConfig) (O, error)
	Wait(context.Context) (ExitEvent, error)
	WaitFor(context.Context, time.Duration) (ExitEvent, error)
}

// ProcessWorker runs a single child process and exchanges newline
// delimited JSON messages with it over stdin and stdout.
type ProcessWorker[I, O any] struct {
	processLock sync.Mutex
	process     *proc
	decoder     *json.Decoder

	// exited is closed once exitEvent is set
	exited    chan struct{}
	exitEvent ExitEvent

	// sendLock keeps request/response pairs in order
	sendLock sync.Mutex

	msgid     int
	msgidLock sync.Mutex

	log *zap.Logger
}

var _ Worker[any, any] = (*ProcessWorker[any, any])(nil)

func NewProcessWorker[I, O any](log *zap.Logger) *ProcessWorker[I, O] {
	return &ProcessWorker[I, O]{
		exited: make(chan struct{}),
		log:    log.Named("worker"),
	}
}

// Start starts the worker process. The process is killed as soon
// as ctx is cancelled.
func (w *ProcessWorker[I, O]) Start(ctx context.Context, config StartConfig) error {
	w.log.Debug("starting worker process",
		zap.String("command", config.Cmd),
		zap.Strings("args", config.Args),
		zap.String("cwd", config.Cwd),
	)

	w.processLock.Lock()
	defer w.processLock.Unlock()

	if w.process != nil {
		return ErrWorkerAlreadyStarted
	}

	if ctx.Err() != nil {
		return fmt.Errorf("failed to start process: %w", ctx.Err())
	}

	process, err := startProc(config, w.log)
	if err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	w.process = process
	w.decoder = json.NewDecoder(process.StdoutPipe())

	go func() {
		<-process.Done()

		w.exitEvent = getExitEvent(process.Err(), process.Stderr())
		close(w.exited)
	}()

	go func() {
		select {
		case <-process.Done():
		case <-ctx.Done():
			_ = process.Kill(-1)
		}
	}()

	return nil
}

// Wait blocks until the worker process exited or ctx is done. If the
// process already exited, Wait returns immediately.
func (w *ProcessWorker[I, O]) Wait(ctx context.Context) (ExitEvent, error) {
	if w.acquireProcess() == nil {
		return ExitEvent{}, ErrWorkerNotStarted
	}

	select {
	case <-ctx.Done():
		return ExitEvent{}, ctx.Err()
	case <-w.exited:
		return w.exitEvent, nil
	}
}

// WaitFor is like Wait but gives up after deadline. A non-positive
// deadline waits until ctx is done.
func (w *ProcessWorker[I, O]) WaitFor(
	ctx context.Context,
	deadline time.Duration,
) (ExitEvent, error) {
	var cancel context.CancelFunc

	if deadline <= 0 {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithTimeout(ctx, deadline)
	}

	defer cancel()

	return w.Wait(ctx)
}

// Kill sends SIGKILL to the worker process group. It does not wait
// for the process to exit.
func (w *ProcessWorker[I, O]) Kill() error {
	if process := w.acquireProcess(); process != nil {
		return process.Kill(-1)
	}

	return ErrWorkerNotStarted
}

// Terminate sends SIGTERM to the worker process group. It does not
// wait for the process to exit.
func (w *ProcessWorker[I, O]) Terminate() error {
	if process := w.acquireProcess(); process != nil {
		return process.Terminate(-1)
	}

	return ErrWorkerNotStarted
}

// Send writes data to the process's stdin and reads the response from
// its stdout. Both sides use the Message envelope, and the response
// must carry the id of the request.
func (w *ProcessWorker[I, O]) Send(
	ctx context.Context,
	data I,
	params SendConfig,
) (O, error) {
	var result O

	process := w.acquireProcess()
	if process == nil {
		return result, ErrWorkerNotStarted
	}

	w.sendLock.Lock()
	defer w.sendLock.Unlock()

	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	reqID := w.nextMsgID()

	type response struct {
		msg Message[O]
		err error
	}

	// encoding and decoding block on the pipes, run them in a
	// goroutine so the call can be abandoned on ctx cancellation
	done := make(chan response, 1)

	go func() {
		var res response

		req := Message[I]{ID: reqID, Data: data}
		if err := json.NewEncoder(process.StdinPipe()).Encode(req); err != nil {
			res.err = fmt.Errorf("write message: %w", err)
			done <- res
			return
		}

		if err := w.decoder.Decode(&res.msg); err != nil {
			res.err = fmt.Errorf("read message: %w", err)
		}

		done <- res
	}()

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	case <-process.Done():
		// the pipes are closed now, so the exchange finishes promptly.
		// the process may have answered right before exiting.
		res := <-done
		if res.err != nil {
			return result, w.exitError(process)
		}
		return w.unwrap(reqID, res.msg, nil)
	case res := <-done:
		return w.unwrap(reqID, res.msg, res.err)
	}
}

func (w *ProcessWorker[I, O]) unwrap(reqID int, msg Message[O], err error) (O, error) {
	if err != nil {
		return msg.Data, err
	}

	if msg.ID != reqID {
		var zero O
		return zero, fmt.Errorf("%w: expected %d, got %d", ErrUnexpectedMessageID, reqID, msg.ID)
	}

	return msg.Data, nil
}

func (w *ProcessWorker[I, O]) exitError(process *proc) error {
	event := getExitEvent(process.Err(), process.Stderr())

	err := errors.New("worker exited unexpectedly")
	if event.Stderr != "" {
		err = fmt.Errorf("%w: %s", err, event.Stderr)
	}

	return err
}

// Stdout returns the stdout of the running process, or nil if the
// worker was not started. Reading from it interferes with Send.
func (w *ProcessWorker[I, O]) Stdout() io.Reader {
	if process := w.acquireProcess(); process != nil {
		return process.StdoutPipe()
	}

	return nil
}

func (w *ProcessWorker[I, O]) Pid() int {
	if process := w.acquireProcess(); process != nil {
		return process.pid
	}

	return 0
}

func (w *ProcessWorker[I, O]) acquireProcess() *proc {
	w.processLock.Lock()
	defer w.processLock.Unlock()

	return w.process
}

func (w *ProcessWorker[I, O]) nextMsgID() int {
	w.msgidLock.Lock()
	defer w.msgidLock.Unlock()

	id := w.msgid
	w.msgid++

	return id
}

// MARK: - Helpers

func getExitEvent(err error, stderr string) ExitEvent {
	var cell int
	var exitStatus *int
	var signo *int

	var exitError *exec.ExitError

	if err == nil {
		exitStatus = &cell
	} else if errors.As(err, &exitError) {
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			if code := status.ExitStatus(); code >= 0 {
				cell = code
				exitStatus = &cell
			} else {
				// terminated by a signal
				cell = int(status.Signal())
				signo = &cell
			}
		}
	}

	if signo == nil && exitStatus == nil {
		// could not determine the exit status or signal
		cell = 1
		exitStatus = &cell
	}

	return ExitEvent{
		Code:   exitStatus,
		Signal: signo,
		Stderr: stderr,
	}
}

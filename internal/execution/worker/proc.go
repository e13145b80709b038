package worker

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

type proc struct {
	pid int
	cmd *exec.Cmd

	// done is closed once the process exited and
	// err and stderr are safe to read
	done chan struct{}
	err  error

	stdout io.ReadCloser
	stdin  io.WriteCloser
	stderr bytes.Buffer

	log *zap.Logger
}

func startProc(config StartConfig, log *zap.Logger) (*proc, error) {
	if config.Cmd == "" {
		return nil, fmt.Errorf("no command given")
	}

	cmd := exec.Command(config.Cmd, config.Args...)

	if config.Env != nil {
		env := os.Environ()
		for k, v := range config.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	if config.Cwd != "" {
		cmd.Dir = config.Cwd
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	setProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &proc{
		pid:    cmd.Process.Pid,
		cmd:    cmd,
		done:   make(chan struct{}),
		stdout: stdout,
		stdin:  stdin,
		log:    log.Named("proc").With(zap.Int("pid", cmd.Process.Pid)),
	}

	go func() {
		// drain stderr first, cmd.Wait closes the pipe
		if _, err := io.Copy(&p.stderr, stderr); err != nil {
			p.log.Debug("failed to read from stderr", zap.Error(err))
		}

		p.err = cmd.Wait()

		close(p.done)
	}()

	return p, nil
}

// Done returns a channel that is closed when the process exited.
func (p *proc) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error. Only valid after Done is closed.
func (p *proc) Err() error {
	return p.err
}

// Stderr returns everything the process wrote to stderr.
// Only valid after Done is closed.
func (p *proc) Stderr() string {
	return p.stderr.String()
}

// Terminate asks the process to stop and waits up to timeout for it
// to exit. A negative timeout returns immediately, zero waits forever.
func (p *proc) Terminate(timeout time.Duration) error {
	if p.exited() {
		p.log.Debug("process already terminated")
		return nil
	}

	p.signal(false)

	return p.waitForTermination(timeout)
}

// Kill forcefully stops the process, see Terminate.
func (p *proc) Kill(timeout time.Duration) error {
	if p.exited() {
		p.log.Debug("process already terminated")
		return nil
	}

	p.signal(true)

	return p.waitForTermination(timeout)
}

func (p *proc) Wait() error {
	return p.waitForTermination(0)
}

func (p *proc) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *proc) waitForTermination(timeout time.Duration) error {
	if timeout < 0 {
		return nil
	}

	if timeout == 0 {
		<-p.done
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		return ErrKillTimeout
	}
}

func (p *proc) signal(force bool) {
	log := p.log.With(zap.Bool("force", force))

	// close stdin first so the process does not hang on input
	if err := p.stdin.Close(); err != nil {
		log.Debug("close stdin failed", zap.Error(err))
	}

	log.Debug("sending signal")

	if err := killProcess(p.cmd, force); err != nil {
		log.Error("stop failed", zap.Error(err))
	}
}

// Close closes the stdin pipe of the process.
func (p *proc) Close() error {
	return p.stdin.Close()
}

func (p *proc) StdinPipe() io.WriteCloser {
	return p.stdin
}

func (p *proc) StdoutPipe() io.ReadCloser {
	return p.stdout
}

// Package remover provides the background removal backends.
package remover

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
)

var (
	ErrUnknownBackend = errors.New("unknown remover backend")
	ErrMissingConfig  = errors.New("missing remover config")
)

// Remover clears the background of an image. The returned image has
// the same dimensions as the input, background pixels are transparent.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// Func adapts a function to the Remover interface.
type Func func(ctx context.Context, img image.Image) (image.Image, error)

func (f Func) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	return f(ctx, img)
}

// Starter is implemented by removers that need to boot resources.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by removers that hold resources.
type Stopper interface {
	Stop(ctx context.Context) error
}

type Backend string

const (
	BuiltinBackend   Backend = "builtin"
	ProcessBackend   Backend = "process"
	RembgBackend     Backend = "rembg"
	PhotoRoomBackend Backend = "photoroom"
	LambdaBackend    Backend = "lambda"
)

// New creates the remover selected by config.Backend.
func New(ctx context.Context, config Config, log *zap.Logger) (Remover, error) {
	r, err := newBackend(ctx, config, log)
	if err != nil {
		return nil, err
	}

	if config.Timeout > 0 {
		r = &timeoutRemover{Remover: r, timeout: config.Timeout}
	}

	return r, nil
}

func newBackend(ctx context.Context, config Config, log *zap.Logger) (Remover, error) {
	switch config.Backend {
	case BuiltinBackend, "":
		return NewBuiltin(config.Builtin), nil
	case ProcessBackend:
		return NewProcess(ctx, config.Process, log)
	case RembgBackend:
		return NewRembg(config.Rembg, nil)
	case PhotoRoomBackend:
		return NewPhotoRoom(config.PhotoRoom, nil)
	case LambdaBackend:
		return NewLambda(ctx, config.Lambda)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Backend)
	}
}

// timeoutRemover bounds every call to the wrapped remover.
type timeoutRemover struct {
	Remover
	timeout time.Duration
}

func (r *timeoutRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.Remover.Remove(ctx, img)
}

func (r *timeoutRemover) Start(ctx context.Context) error {
	if s, ok := r.Remover.(Starter); ok {
		return s.Start(ctx)
	}
	return nil
}

func (r *timeoutRemover) Stop(ctx context.Context) error {
	if s, ok := r.Remover.(Stopper); ok {
		return s.Stop(ctx)
	}
	return nil
}

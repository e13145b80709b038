package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/lambda-feedback/bgstrip/internal/execution/worker"
	"go.uber.org/zap"
)

type AdapterFactoryFn[I, O any] func(Config, *zap.Logger) (Adapter[I, O], error)

// Adapter hides how messages reach a worker process.
type Adapter[I, O any] interface {
	Start(context.Context, worker.StartConfig) error
	Send(context.Context, I, worker.SendConfig) (O, error)
	Stop(worker.StopConfig) (ReleaseFunc, error)
}

// MARK: - factory

func defaultAdapterFactory[I, O any](
	config Config,
	log *zap.Logger,
) (Adapter[I, O], error) {
	switch config.Interface {
	case FileIO:
		return newFileAdapter[I, O](log), nil
	case StdIO, "":
		return newStdioAdapter[I, O](log), nil
	case RpcIO:
		return newRpcAdapter[I, O](config.Rpc, log)
	default:
		return nil, ErrUnsupportedIOMode
	}
}

// MARK: - helpers

type stoppable interface {
	Terminate() error
	Kill() error
	Wait(context.Context) (worker.ExitEvent, error)
	WaitFor(context.Context, time.Duration) (worker.ExitEvent, error)
}

func stopWorker(w stoppable, params worker.StopConfig) (ReleaseFunc, error) {
	if err := w.Terminate(); err != nil {
		if errors.Is(err, worker.ErrWorkerNotStarted) {
			return noopReleaseFunc, nil
		}

		// no need to wait for termination if we could not terminate
		return nil, err
	}

	return func(ctx context.Context) error {
		_, err := w.WaitFor(ctx, params.Timeout)
		if err == nil {
			return nil
		}

		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return err
		}

		// the worker ignored the termination request
		if err := w.Kill(); err != nil {
			return err
		}

		_, err = w.Wait(ctx)
		return err
	}, nil
}

package dispatcher

import (
	"context"
	"fmt"

	"github.com/lambda-feedback/bgstrip/internal/execution/supervisor"
	"go.uber.org/zap"
)

// DedicatedDispatcher routes every message through a single supervisor.
type DedicatedDispatcher[I, O any] struct {
	supervisor supervisor.Supervisor[I, O]
	log        *zap.Logger
}

var _ Dispatcher[any, any] = (*DedicatedDispatcher[any, any])(nil)

type DedicatedDispatcherConfig struct {
	// Supervisor is the configuration to use for the supervisor
	Supervisor supervisor.Config
}

type DedicatedDispatcherParams[I, O any] struct {
	// Context bounds the lifetime of persistent workers
	Context context.Context

	// Config is the config for the dispatcher and the underlying supervisor
	Config DedicatedDispatcherConfig

	// SupervisorFactory is the factory function to create a new supervisor
	SupervisorFactory SupervisorFactory[I, O]

	// Log is the logger to use for the dispatcher
	Log *zap.Logger
}

func NewDedicatedDispatcher[I, O any](
	params DedicatedDispatcherParams[I, O],
) (*DedicatedDispatcher[I, O], error) {
	if params.SupervisorFactory == nil {
		params.SupervisorFactory = defaultSupervisorFactory[I, O]
	}

	sv, err := params.SupervisorFactory(supervisor.Params[I, O]{
		Context: params.Context,
		Config:  params.Config.Supervisor,
		Log:     params.Log,
	})
	if err != nil {
		return nil, err
	}

	return &DedicatedDispatcher[I, O]{
		supervisor: sv,
		log:        params.Log.Named("dispatcher_dedicated"),
	}, nil
}

func (m *DedicatedDispatcher[I, O]) Start(ctx context.Context) error {
	m.log.Debug("booting")

	if err := m.supervisor.Start(ctx); err != nil {
		m.log.Error("error booting", zap.Error(err))
		return err
	}

	m.log.Debug("done booting")

	return nil
}

func (m *DedicatedDispatcher[I, O]) Send(ctx context.Context, data I) (O, error) {
	var zero O

	m.log.Debug("sending message")

	res, err := m.supervisor.Send(ctx, data)

	if res != nil && res.Release != nil {
		if releaseErr := res.Release(ctx); releaseErr != nil {
			m.log.Error("error releasing worker", zap.Error(releaseErr))
			if err == nil {
				return zero, fmt.Errorf("error releasing worker: %w", releaseErr)
			}
		}
	}

	if err != nil {
		m.log.Error("error sending message", zap.Error(err))
		return zero, fmt.Errorf("error sending data: %w", err)
	}

	m.log.Debug("message sent")

	return res.Data, nil
}

// Shutdown stops the dispatcher and waits for the worker to finish.
func (m *DedicatedDispatcher[I, O]) Shutdown(ctx context.Context) error {
	m.log.Debug("shutting down")

	wait, err := m.supervisor.Shutdown(ctx)
	if err != nil {
		m.log.Error("error shutting down", zap.Error(err))
		return err
	}

	if wait == nil {
		m.log.Warn("missing wait function")
		return nil
	}

	if err := wait(); err != nil {
		m.log.Error("error waiting for shut down", zap.Error(err))
		return err
	}

	m.log.Debug("shut down")

	return nil
}

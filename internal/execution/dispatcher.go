package execution

import (
	"context"

	"github.com/lambda-feedback/bgstrip/internal/execution/dispatcher"
	"github.com/lambda-feedback/bgstrip/internal/execution/supervisor"
	"go.uber.org/zap"
)

type Dispatcher[I, O any] dispatcher.Dispatcher[I, O]

type Config struct {
	// MaxWorkers is the maximum number of concurrent workers. A value
	// of 1 routes all messages through a single dedicated supervisor,
	// 0 sizes the pool to the number of CPU cores.
	MaxWorkers int `conf:"max_workers" validate:"gte=0"`

	// Supervisor is the configuration to use for the supervisors
	Supervisor supervisor.Config `conf:",squash"`
}

type Params struct {
	// Context bounds the lifetime of persistent workers
	Context context.Context

	// Config is the config for the dispatcher and the underlying supervisors
	Config Config

	// Log is the logger to use for the dispatcher
	Log *zap.Logger
}

func NewDispatcher[I, O any](params Params) (Dispatcher[I, O], error) {
	if params.Config.MaxWorkers == 1 {
		d, err := dispatcher.NewDedicatedDispatcher(
			dispatcher.DedicatedDispatcherParams[I, O]{
				Context: params.Context,
				Config: dispatcher.DedicatedDispatcherConfig{
					Supervisor: params.Config.Supervisor,
				},
				Log: params.Log,
			},
		)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	d, err := dispatcher.NewPooledDispatcher(
		dispatcher.PooledDispatcherParams[I, O]{
			Context: params.Context,
			Config: dispatcher.PooledDispatcherConfig{
				Supervisor: params.Config.Supervisor,
				MaxWorkers: params.Config.MaxWorkers,
			},
			Log: params.Log,
		},
	)
	if err != nil {
		return nil, err
	}

	return d, nil
}

package remover

import (
	"context"

	"github.com/lambda-feedback/bgstrip/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the configured Remover.
func Module(config Config) fx.Option {
	return fx.Module(
		"remover",
		// provide remover config
		fx.Supply(config),
		// rename logger for module
		logging.DecorateLogger("remover"),
		// provide remover
		fx.Provide(NewLifecycleRemover),
	)
}

type Params struct {
	fx.In

	// Context bounds the lifetime of worker processes
	Context context.Context

	Config Config

	Log *zap.Logger
}

// NewLifecycleRemover creates the remover and ties its resources and
// the warmup schedule to the application lifecycle.
func NewLifecycleRemover(params Params, lc fx.Lifecycle) (Remover, error) {
	r, err := New(params.Context, params.Config, params.Log)
	if err != nil {
		return nil, err
	}

	var warmer *Warmer
	if params.Config.WarmupSchedule != "" {
		warmer, err = NewWarmer(params.Config.WarmupSchedule, r, params.Log)
		if err != nil {
			return nil, err
		}
	}

	params.Log.Debug("remover created", zap.String("backend", string(params.Config.Backend)))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if s, ok := r.(Starter); ok {
				if err := s.Start(ctx); err != nil {
					return err
				}
			}

			if warmer != nil {
				warmer.Start()
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if warmer != nil {
				if err := warmer.Stop(ctx); err != nil {
					params.Log.Warn("warmup did not stop in time", zap.Error(err))
				}
			}

			if s, ok := r.(Stopper); ok {
				return s.Stop(ctx)
			}

			return nil
		},
	})

	return r, nil
}

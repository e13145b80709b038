package app

import (
	"github.com/lambda-feedback/bgstrip/config"
	"github.com/lambda-feedback/bgstrip/internal/shell"
	"github.com/lambda-feedback/bgstrip/remover"
	"github.com/lambda-feedback/bgstrip/runtime"
	"github.com/lambda-feedback/bgstrip/util/conf"
	"github.com/lambda-feedback/bgstrip/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	return shell.New(log, SharedModule(config)), nil
}

// SharedModule provides everything needed to handle a request,
// independent of the transport.
func SharedModule(config config.Config) fx.Option {
	return fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
		// provide remover
		remover.Module(config.Remover),
		// provide runtime
		runtime.Module(config.Runtime),
	)
}

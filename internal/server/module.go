package server

import (
	"github.com/lambda-feedback/bgstrip/util/logging"
	"go.uber.org/fx"
)

// Module serves all handlers of the "handlers" group over http.
func Module(config HttpConfig) fx.Option {
	return fx.Module("server",
		// provide config
		fx.Supply(config),
		// rename logger for module
		logging.DecorateLogger("server"),
		// provide server
		fx.Provide(NewLifecycleServer),
		// invoke server
		fx.Invoke(func(*HttpServer) {}),
	)
}

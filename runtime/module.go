package runtime

import "go.uber.org/fx"

// Module provides the runtime handler.
func Module(config Config) fx.Option {
	return fx.Module(
		"runtime",

		// provide runtime config
		fx.Supply(config),

		// provide pipeline
		fx.Provide(NewPipeline),

		// provide runtime handler
		fx.Provide(NewRuntimeHandler),
	)
}

package handler

import "go.uber.org/fx"

// Module provides the http routes of the runtime handler.
func Module() fx.Option {
	return fx.Module("handler",
		fx.Provide(NewCommandHandler),
		fx.Provide(NewLegacyRoute),
		fx.Provide(NewRemoveRoute),
		fx.Provide(NewHealthRoute),
	)
}

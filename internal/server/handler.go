package server

import (
	"net/http"

	"go.uber.org/fx"
)

// HttpHandler is a handler registered under a ServeMux pattern.
type HttpHandler struct {
	Name    string
	Handler http.Handler
}

// HttpHandlerResult adds a handler to the "handlers" group.
type HttpHandlerResult struct {
	fx.Out

	Handler *HttpHandler `group:"handlers"`
}

// AsHttpHandler registers handler under the given pattern, which
// may be prefixed with a method, e.g. "GET /health".
func AsHttpHandler(pattern string, handler http.Handler) HttpHandlerResult {
	return HttpHandlerResult{
		Handler: &HttpHandler{
			Name:    pattern,
			Handler: handler,
		},
	}
}

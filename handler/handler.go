package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lambda-feedback/bgstrip/config"
	"github.com/lambda-feedback/bgstrip/runtime"
)

// bodyOverhead is added to the body limit for the base64 expansion
// and the surrounding JSON.
const bodyOverhead = 64 << 10

type CommandHandlerParams struct {
	fx.In

	Handler runtime.Handler
	Config  config.Config
	Log     *zap.Logger
}

func NewCommandHandler(params CommandHandlerParams) *CommandHandler {
	var maxBody int64
	if n := params.Config.Runtime.MaxInputBytes; n > 0 {
		maxBody = int64(n)/3*4 + bodyOverhead
	}

	return &CommandHandler{
		handler: params.Handler,
		config:  params.Config,
		maxBody: maxBody,
		log:     params.Log,
	}
}

// CommandHandler maps http requests onto the runtime handler.
type CommandHandler struct {
	handler runtime.Handler
	config  config.Config
	maxBody int64
	log     *zap.Logger
}

func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)

	// Check for authorization, preflight requests carry no credentials
	if r.Method != http.MethodOptions && h.config.Auth.Key != "" && r.Header.Get("api-key") != h.config.Auth.Key {
		log.Debug("unauthorized request")
		writeError(w, http.StatusUnauthorized, "unauthorized", log)
		return
	}

	var reader io.Reader = r.Body
	if h.maxBody > 0 {
		reader = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Debug("request body too large", zap.Int64("limit", maxErr.Limit))
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", log)
			return
		}

		log.Debug("failed to read body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "failed to read body", log)
		return
	}

	request := runtime.Request{
		Method: r.Method,
		Body:   body,
	}

	// Handle the request
	response := h.handler.Handle(r.Context(), request)

	writeResponse(w, response, log)
}

// writeResponse writes the headers, status code and body of response.
func writeResponse(w http.ResponseWriter, response runtime.Response, log *zap.Logger) {
	// Map response headers
	for k, v := range response.Headers {
		w.Header().Set(k, v)
	}

	// Write response headers and status code
	w.WriteHeader(response.StatusCode)

	// Write response body
	if body := response.BodyBytes(); body != nil {
		if _, err := w.Write(body); err != nil {
			log.Debug("failed to write response", zap.Error(err))
		}
	}
}

// writeError writes a JSON error response carrying the CORS headers.
func writeError(w http.ResponseWriter, status int, message string, log *zap.Logger) {
	for k, v := range runtime.CORSHeaders() {
		w.Header().Set(k, v)
	}

	writeJSON(w, status, map[string]string{"error": message}, log)
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any, log *zap.Logger) {
	w.Header().Set(runtime.HeaderContentType, "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", zap.Error(err))
	}
}

package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lambda-feedback/bgstrip/runtime/schema"
	"github.com/segmentio/ksuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sanitizedErrorMessage = "failed to process image"

// Handler is the interface for handling runtime requests.
type Handler interface {
	Handle(ctx context.Context, request Request) Response
}

// Processor runs the image pipeline.
type Processor interface {
	Process(ctx context.Context, encoded string) (string, error)
}

// HandlerParams defines the dependencies for the runtime handler.
type HandlerParams struct {
	fx.In

	Pipeline *Pipeline

	Config Config

	Log *zap.Logger
}

// RuntimeHandler handles background removal requests.
type RuntimeHandler struct {
	processor Processor
	schema    *schema.Schema
	sanitize  bool
	log       *zap.Logger
}

var _ Handler = (*RuntimeHandler)(nil)

// NewRuntimeHandler creates a new runtime handler.
func NewRuntimeHandler(params HandlerParams) (Handler, error) {
	return newRuntimeHandler(params.Pipeline, params.Config, params.Log)
}

func newRuntimeHandler(processor Processor, config Config, log *zap.Logger) (*RuntimeHandler, error) {
	requestSchema, err := schema.NewRequestSchema()
	if err != nil {
		return nil, err
	}

	return &RuntimeHandler{
		processor: processor,
		schema:    requestSchema,
		sanitize:  config.SanitizeErrors,
		log:       log,
	}, nil
}

// Handle handles a runtime request. It never fails, errors are
// reported as error responses.
func (h *RuntimeHandler) Handle(ctx context.Context, req Request) Response {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	log := h.log.With(
		zap.String("request_id", ksuid.New().String()),
		zap.String("method", method),
	)

	if method == http.MethodOptions {
		log.Debug("preflight request")
		return newResponse(http.StatusNoContent, nil)
	}

	start := time.Now()

	payload, err := h.parsePayload(req.Body)
	if err == nil && payload.Image == "" {
		err = ErrNoImage
	}

	if err == nil {
		var uri string
		if uri, err = h.processor.Process(ctx, payload.Image); err == nil {
			log.Info("image processed", zap.Duration("took", time.Since(start)))
			return newResponse(http.StatusOK, map[string]string{"image": uri})
		}
	}

	return h.errorResponse(ctx, log, err)
}

// parsePayload decodes the request body. Bodies that are not JSON
// objects, and images with an empty value, yield an empty payload.
func (h *RuntimeHandler) parsePayload(body json.RawMessage) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return Payload{}, nil
	}

	var raw struct {
		Image json.RawMessage `json:"image"`
	}

	// malformed bodies are reported by the schema validation
	if err := json.Unmarshal(body, &raw); err == nil && isEmptyValue(raw.Image) {
		return Payload{}, nil
	}

	res, err := h.schema.Validate(body)
	if err != nil {
		return Payload{}, err
	}

	if !res.Valid() {
		return Payload{}, &validationError{Result: res}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Payload{}, err
	}

	return payload, nil
}

// isEmptyValue reports whether a JSON value is null, false, zero,
// an empty string, an empty array or an empty object.
func isEmptyValue(data json.RawMessage) bool {
	if len(data) == 0 {
		return true
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}

	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}

	return false
}

func (h *RuntimeHandler) errorResponse(ctx context.Context, log *zap.Logger, err error) Response {
	status := getErrorStatusCode(err)

	if status < http.StatusInternalServerError {
		log.Debug("rejected request", zap.Error(err))
		return newErrorResponse(status, err.Error())
	}

	fields := []zap.Field{zap.Error(err)}

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		fields = append(fields, zap.String("stage", string(procErr.Stage)))
	}

	log.Error("failed to process image", fields...)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)

	message := err.Error()
	if h.sanitize {
		message = sanitizedErrorMessage
	}

	return newErrorResponse(status, message)
}

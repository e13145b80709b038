package runtime

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrNoImage       = errors.New("No image data provided")
	ErrInputTooLarge = errors.New("image data exceeds size limit")
)

var wellKnownErrors = map[error]int{
	ErrNoImage: http.StatusBadRequest,
}

// Stage names a step of the processing pipeline.
type Stage string

const (
	StageDecodeBase64     Stage = "decode_base64"
	StageDecodeImage      Stage = "decode_image"
	StageRemoveBackground Stage = "remove_background"
	StageEncodePNG        Stage = "encode_png"
)

// ProcessingError is returned by the pipeline, it wraps the
// error of the stage that failed.
type ProcessingError struct {
	Stage Stage
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %s", strings.ReplaceAll(string(e.Stage), "_", " "), e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// validationError is returned for request bodies that don't
// match the request schema.
type validationError struct {
	Result *gojsonschema.Result
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Errors()))
	for _, err := range e.Result.Errors() {
		msgs = append(msgs, err.String())
	}

	return "invalid request body: " + strings.Join(msgs, "; ")
}

// getErrorStatusCode returns the status code for the given error.
func getErrorStatusCode(err error) int {
	for known, status := range wellKnownErrors {
		if errors.Is(err, known) {
			return status
		}
	}

	return http.StatusInternalServerError
}

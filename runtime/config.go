package runtime

type Config struct {
	// SanitizeErrors replaces internal error messages in 500
	// responses with a generic message. Errors are logged either way.
	SanitizeErrors bool `conf:"sanitize_errors"`

	// MaxInputBytes limits the size of the decoded image data
	MaxInputBytes int `conf:"max_input_bytes" validate:"gte=0"`

	// MaxPixels limits width * height of the decoded image
	MaxPixels int `conf:"max_pixels" validate:"gte=0"`

	// PNGCompression is the compression level of the output PNG
	PNGCompression string `conf:"png_compression" validate:"omitempty,oneof=default none speed best"`
}

// DefaultConfig holds the default values under the runtime namespace.
var DefaultConfig = map[string]any{
	"sanitize_errors": false,
	"max_input_bytes": 20 << 20,
	"max_pixels":      40_000_000,
	"png_compression": "default",
}

package standalone

import "github.com/lambda-feedback/bgstrip/internal/server"

type Config struct {
	// HttpConfig represents the configuration for the HTTP server.
	HttpConfig server.HttpConfig `conf:",squash"`
}

// DefaultConfig holds the defaults of the standalone server.
var DefaultConfig = map[string]any{
	"host":          "localhost",
	"port":          8080,
	"h2c":           false,
	"read_timeout":  "30s",
	"write_timeout": "120s",
}

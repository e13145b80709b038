package config

import (
	"github.com/lambda-feedback/bgstrip/remover"
	"github.com/lambda-feedback/bgstrip/runtime"
	"github.com/lambda-feedback/bgstrip/util/conf"
)

type AuthConfig struct {
	// Key is the api key that must be sent in the api-key header,
	// an empty key disables authorization
	Key string `conf:"key"`
}

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format" validate:"omitempty,oneof=production development"`

	// Auth is the http authorization configuration
	Auth AuthConfig `conf:"auth"`

	// Runtime is the request handling configuration
	Runtime runtime.Config `conf:"runtime"`

	// Remover is the background removal configuration
	Remover remover.Config `conf:"remover"`
}

// DefaultConfig holds the defaults of all namespaces, flattened to
// dotted keys.
var DefaultConfig = mergeDefaults(
	conf.DefaultConfig{
		"log_level":  "info",
		"log_format": "production",
	},
	conf.MergeDefaults("runtime", runtime.DefaultConfig),
	conf.MergeDefaults("remover", remover.DefaultConfig),
)

func mergeDefaults(maps ...map[string]any) conf.DefaultConfig {
	merged := conf.DefaultConfig{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}

	return merged
}

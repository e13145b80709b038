package conf

import (
	"context"
	"errors"
)

type contextKey int

var configKey = contextKey(1)

var (
	ErrNoConfigInContext      = errors.New("config not found in context")
	ErrInvalidConfigInContext = errors.New("invalid config in context")
)

// GetConfigFromContext returns the config of type C stored by
// ContextWithConfig.
func GetConfigFromContext[C any](ctx context.Context) (C, error) {
	var zero C

	value := ctx.Value(configKey)
	if value == nil {
		return zero, ErrNoConfigInContext
	}

	config, ok := value.(C)
	if !ok {
		return zero, ErrInvalidConfigInContext
	}

	return config, nil
}

func ContextWithConfig[C any](ctx context.Context, config C) context.Context {
	return context.WithValue(ctx, configKey, config)
}

package app

import (
	"context"
	"testing"

	"github.com/lambda-feedback/bgstrip/app/lambda"
	"github.com/lambda-feedback/bgstrip/app/standalone"
	"github.com/lambda-feedback/bgstrip/config"
	"github.com/lambda-feedback/bgstrip/remover"
	"github.com/lambda-feedback/bgstrip/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testConfig() config.Config {
	return config.Config{
		Runtime: runtime.Config{PNGCompression: "speed"},
		Remover: remover.Config{
			Backend: remover.BuiltinBackend,
			Builtin: remover.BuiltinConfig{Tolerance: 24},
		},
	}
}

func baseOptions(t *testing.T) fx.Option {
	return fx.Options(
		fx.Supply(fx.Annotate(context.Background(), fx.As(new(context.Context)))),
		fx.Supply(zaptest.NewLogger(t)),
	)
}

func TestSharedModule_ProvidesHandler(t *testing.T) {
	var h runtime.Handler

	app := fxtest.New(t,
		baseOptions(t),
		SharedModule(testConfig()),
		fx.Populate(&h),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, h)

	res := h.Handle(context.Background(), runtime.Request{Method: "OPTIONS"})
	assert.Equal(t, 204, res.StatusCode)
}

func TestStandaloneGraph(t *testing.T) {
	err := fx.ValidateApp(
		baseOptions(t),
		SharedModule(testConfig()),
		standalone.Module(standalone.Config{}),
	)
	assert.NoError(t, err)
}

func TestLambdaGraph(t *testing.T) {
	err := fx.ValidateApp(
		baseOptions(t),
		SharedModule(testConfig()),
		lambda.Module(lambda.Config{ProxySource: lambda.ProxySourceEvent}),
	)
	assert.NoError(t, err)
}

func TestSharedModule_InvalidBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Remover.Backend = "magic"

	app := fx.New(
		fx.Supply(fx.Annotate(context.Background(), fx.As(new(context.Context)))),
		fx.Supply(zap.NewNop()),
		fx.NopLogger,
		SharedModule(cfg),
		fx.Invoke(func(runtime.Handler) {}),
	)

	assert.ErrorContains(t, app.Err(), remover.ErrUnknownBackend.Error())
}

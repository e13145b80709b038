package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/lambda-feedback/bgstrip/internal/execution/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type message struct {
	Image string `json:"image"`
}

func TestDefaultAdapterFactory(t *testing.T) {
	a, err := defaultAdapterFactory[message, message](Config{Interface: StdIO}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &stdioAdapter[message, message]{}, a)

	a, err = defaultAdapterFactory[message, message](Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &stdioAdapter[message, message]{}, a)

	a, err = defaultAdapterFactory[message, message](Config{Interface: FileIO}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &fileAdapter[message, message]{}, a)

	a, err = defaultAdapterFactory[message, message](Config{Interface: RpcIO}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &rpcAdapter[message, message]{}, a)

	_, err = defaultAdapterFactory[message, message](Config{Interface: "socket"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnsupportedIOMode)
}

func TestStdioAdapter_RoundTrip(t *testing.T) {
	a := newStdioAdapter[message, message](zap.NewNop())

	require.NoError(t, a.Start(context.Background(), worker.StartConfig{Cmd: "cat"}))

	res, err := a.Send(context.Background(), message{Image: "abc"}, worker.SendConfig{Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Image)

	release, err := a.Stop(worker.StopConfig{Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

func TestStdioAdapter_Stop_NotStarted(t *testing.T) {
	a := newStdioAdapter[message, message](zap.NewNop())

	release, err := a.Stop(worker.StopConfig{})
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

func TestStdioAdapter_Stop_KillsStubbornWorker(t *testing.T) {
	a := newStdioAdapter[message, message](zap.NewNop())

	require.NoError(t, a.Start(context.Background(), worker.StartConfig{
		Cmd:  "sh",
		Args: []string{"-c", "trap '' TERM; while true; do sleep 0.05; done"},
	}))

	release, err := a.Stop(worker.StopConfig{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, release(ctx))
}

func TestFileAdapter_RoundTrip(t *testing.T) {
	a := newFileAdapter[message, message](zap.NewNop())

	// echo the request file into the response file
	require.NoError(t, a.Start(context.Background(), worker.StartConfig{
		Cmd:  "sh",
		Args: []string{"-c", `cp "$1" "$2"`, "sh"},
	}))

	for range 2 {
		res, err := a.Send(context.Background(), message{Image: "abc"}, worker.SendConfig{Timeout: 2 * time.Second})
		require.NoError(t, err)
		assert.Equal(t, "abc", res.Image)
	}

	release, err := a.Stop(worker.StopConfig{})
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

func TestFileAdapter_UsesEnv(t *testing.T) {
	a := newFileAdapter[message, message](zap.NewNop())

	require.NoError(t, a.Start(context.Background(), worker.StartConfig{
		Cmd:  "sh",
		Args: []string{"-c", `cp "$REQUEST_FILE_NAME" "$RESPONSE_FILE_NAME"`},
	}))

	res, err := a.Send(context.Background(), message{Image: "xyz"}, worker.SendConfig{Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "xyz", res.Image)
}

func TestFileAdapter_WorkerFails(t *testing.T) {
	a := newFileAdapter[message, message](zap.NewNop())

	require.NoError(t, a.Start(context.Background(), worker.StartConfig{
		Cmd:  "sh",
		Args: []string{"-c", "echo model missing >&2; exit 2"},
	}))

	_, err := a.Send(context.Background(), message{}, worker.SendConfig{Timeout: 2 * time.Second})
	assert.ErrorIs(t, err, ErrWorkerFailed)
	assert.ErrorContains(t, err, "model missing")
}

func TestFileAdapter_Timeout(t *testing.T) {
	a := newFileAdapter[message, message](zap.NewNop())

	require.NoError(t, a.Start(context.Background(), worker.StartConfig{
		Cmd:  "sh",
		Args: []string{"-c", "sleep 10"},
	}))

	_, err := a.Send(context.Background(), message{}, worker.SendConfig{Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

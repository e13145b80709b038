package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lambda-feedback/bgstrip/internal/execution/worker"
	"go.uber.org/zap"
)

// RpcTransport is the transport of the rpc interface.
type RpcTransport string

const (
	// IpcTransport uses a unix socket or a windows named pipe
	IpcTransport RpcTransport = "ipc"

	// HttpTransport posts every call to a http endpoint
	HttpTransport RpcTransport = "http"

	// WsTransport uses a websocket connection
	WsTransport RpcTransport = "ws"

	// TcpTransport uses a raw tcp connection
	TcpTransport RpcTransport = "tcp"
)

const (
	defaultRpcMethod      = "remove_background"
	defaultRpcDialTimeout = 10 * time.Second
)

// RpcConfig describes the configuration for the rpc interface.
type RpcConfig struct {
	// Transport is the transport used to reach the worker. Default
	// is "ipc".
	Transport RpcTransport `conf:"transport" validate:"omitempty,oneof=ipc http ws tcp"`

	// Endpoint is the socket path or pipe name for ipc, the url for
	// http and ws, or the address for tcp.
	Endpoint string `conf:"endpoint"`

	// Method is the name of the remote method.
	Method string `conf:"method"`

	// DialTimeout bounds connecting to a freshly started worker.
	DialTimeout time.Duration `conf:"dial_timeout"`
}

// rpcAdapter talks JSON-RPC 2.0 to a worker. If no command is
// configured, it connects to an already running server.
type rpcAdapter[I, O any] struct {
	worker *worker.ProcessWorker[I, O]
	client *rpc.Client

	config RpcConfig
	log    *zap.Logger
}

func newRpcAdapter[I, O any](config RpcConfig, log *zap.Logger) (*rpcAdapter[I, O], error) {
	if config.Transport == "" {
		config.Transport = IpcTransport
	}

	switch config.Transport {
	case IpcTransport:
		if config.Endpoint == "" {
			config.Endpoint = defaultIPCEndpoint()
		}
	case HttpTransport, WsTransport, TcpTransport:
		if config.Endpoint == "" {
			return nil, fmt.Errorf("missing endpoint for rpc transport %q", config.Transport)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTransport, config.Transport)
	}

	if config.Method == "" {
		config.Method = defaultRpcMethod
	}

	if config.DialTimeout <= 0 {
		config.DialTimeout = defaultRpcDialTimeout
	}

	return &rpcAdapter[I, O]{
		config: config,
		log:    log.Named("adapter_rpc"),
	}, nil
}

func (a *rpcAdapter[I, O]) Start(ctx context.Context, params worker.StartConfig) error {
	if params.Cmd != "" {
		params.Env = a.buildEnv(params.Env)

		w := worker.NewProcessWorker[I, O](a.log)
		if err := w.Start(ctx, params); err != nil {
			return fmt.Errorf("error starting worker: %w", err)
		}

		a.worker = w

		// the worker may log to stdout, which would block it
		// once the pipe buffer is full
		go a.drainOutput(w)
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.config.DialTimeout)
	defer cancel()

	client, err := a.dialWithRetry(dialCtx, 50*time.Millisecond, time.Second)
	if err != nil {
		if a.worker != nil {
			_ = a.worker.Kill()
		}
		return err
	}

	a.client = client

	return nil
}

func (a *rpcAdapter[I, O]) Send(ctx context.Context, data I, params worker.SendConfig) (O, error) {
	var result O

	if a.client == nil {
		return result, worker.ErrWorkerNotStarted
	}

	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	if err := a.client.CallContext(ctx, &result, a.config.Method, data); err != nil {
		return result, fmt.Errorf("error sending rpc request: %w", err)
	}

	return result, nil
}

func (a *rpcAdapter[I, O]) Stop(params worker.StopConfig) (ReleaseFunc, error) {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}

	if a.worker == nil {
		return noopReleaseFunc, nil
	}

	return stopWorker(a.worker, params)
}

func (a *rpcAdapter[I, O]) dialWithRetry(
	ctx context.Context,
	baseDelay time.Duration,
	maxDelay time.Duration,
) (*rpc.Client, error) {
	delay := baseDelay

	for i := 0; ; i++ {
		client, err := a.dial(ctx)
		if err == nil {
			return client, nil
		}

		a.log.Debug("error dialing rpc",
			zap.Int("retry", i),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("error dialing rpc: %w", errors.Join(err, ctx.Err()))
		}

		delay = min(delay*2, maxDelay)
	}
}

func (a *rpcAdapter[I, O]) dial(ctx context.Context) (*rpc.Client, error) {
	switch a.config.Transport {
	case IpcTransport:
		return rpc.DialIPC(ctx, a.config.Endpoint)
	case HttpTransport, WsTransport:
		return rpc.DialContext(ctx, a.config.Endpoint)
	case TcpTransport:
		conn, err := new(net.Dialer).DialContext(ctx, "tcp", a.config.Endpoint)
		if err != nil {
			return nil, err
		}
		return rpc.DialIO(ctx, conn, conn)
	}

	return nil, ErrUnsupportedTransport
}

func (a *rpcAdapter[I, O]) drainOutput(w *worker.ProcessWorker[I, O]) {
	stdout := w.Stdout()
	if stdout == nil {
		return
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		a.log.Debug("worker output", zap.String("line", scanner.Text()))
	}
}

func (a *rpcAdapter[I, O]) buildEnv(env map[string]string) map[string]string {
	merged := make(map[string]string, len(env)+2)
	for k, v := range env {
		merged[k] = v
	}

	merged["RPC_TRANSPORT"] = string(a.config.Transport)
	merged["RPC_ENDPOINT"] = a.config.Endpoint

	return merged
}

func defaultIPCEndpoint() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\bgstrip`
	}

	return "/tmp/bgstrip.sock"
}

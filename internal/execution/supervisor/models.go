package supervisor

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedIOMode       = errors.New("unsupported io interface")
	ErrInvalidPersistentFileIO = errors.New("persistent workers are not supported for file IO")
	ErrUnsupportedTransport    = errors.New("unsupported rpc transport")
)

type IOInterface string

const (
	// StdIO describes communication over stdin/stdout
	StdIO IOInterface = "stdio"

	// FileIO describes communication w/ processes over files
	FileIO IOInterface = "file"

	// RpcIO describes communication over JSON-RPC 2.0
	RpcIO IOInterface = "rpc"
)

// ReleaseFunc releases a worker after a message was sent. For transient
// workers it waits for the worker process to exit.
type ReleaseFunc func(context.Context) error

// WaitFunc blocks until a stopped worker exited.
type WaitFunc func() error

type Result[O any] struct {
	Data    O
	Release ReleaseFunc
}

func noopReleaseFunc(context.Context) error {
	return nil
}

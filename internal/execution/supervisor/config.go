package supervisor

import (
	"github.com/lambda-feedback/bgstrip/internal/execution/worker"
)

// StartConfig describes the configuration for starting the worker.
type StartConfig = worker.StartConfig

// StopConfig describes the configuration for stopping the worker.
type StopConfig = worker.StopConfig

// SendConfig describes the configuration for sending messages to the worker.
type SendConfig = worker.SendConfig

type Config struct {
	// Interface describes the communication between the supervisor
	// and the worker. It can be "stdio", "file" or "rpc".
	//
	// If "stdio", messages are written to the worker's stdin and the
	// response is read from its stdout, one JSON document per line.
	//
	// If "file", the request is written to a temporary file and the
	// worker is expected to write its response to a second file. Both
	// file names are appended to the worker args and exported as
	// REQUEST_FILE_NAME and RESPONSE_FILE_NAME. Only valid for
	// transient workers.
	//
	// If "rpc", messages are sent as JSON-RPC calls over the
	// transport configured in Rpc.
	Interface IOInterface `conf:"interface" validate:"omitempty,oneof=stdio file rpc"`

	// Rpc is the configuration for the rpc interface.
	Rpc RpcConfig `conf:"rpc"`

	// Persistent keeps the worker process alive between messages.
	Persistent bool `conf:"persistent"`

	// StartParams are the parameters to pass to the worker when
	// starting it.
	StartParams StartConfig `conf:",squash"`

	// StopParams are the parameters to pass to the worker when
	// terminating it.
	StopParams StopConfig `conf:"stop"`

	// SendParams are the parameters to pass to the worker when
	// sending a message.
	SendParams SendConfig `conf:"send"`
}

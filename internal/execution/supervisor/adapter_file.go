package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/lambda-feedback/bgstrip/internal/execution/worker"
	"go.uber.org/zap"
)

var ErrWorkerFailed = errors.New("worker failed")

type fileAdapter[I, O any] struct {
	// newWorker creates a fresh worker for every message, as the
	// file names are passed on the command line
	newWorker func() worker.Worker[any, any]

	startParams worker.StartConfig

	log *zap.Logger
}

func newFileAdapter[I, O any](log *zap.Logger) *fileAdapter[I, O] {
	return &fileAdapter[I, O]{
		newWorker: func() worker.Worker[any, any] {
			return worker.NewProcessWorker[any, any](log)
		},
		log: log,
	}
}

func (a *fileAdapter[I, O]) Start(ctx context.Context, params worker.StartConfig) error {
	// the worker can't be started yet, as the request file has to be
	// passed via arguments. keep the params for Send.
	a.startParams = params

	return nil
}

func (a *fileAdapter[I, O]) Send(
	ctx context.Context,
	data I,
	params worker.SendConfig,
) (O, error) {
	var out O

	reqFile, err := os.CreateTemp("", "request-data-*")
	if err != nil {
		return out, fmt.Errorf("create request file: %w", err)
	}
	defer os.Remove(reqFile.Name())
	defer reqFile.Close()

	resFile, err := os.CreateTemp("", "response-data-*")
	if err != nil {
		return out, fmt.Errorf("create response file: %w", err)
	}
	defer os.Remove(resFile.Name())
	defer resFile.Close()

	if err := json.NewEncoder(reqFile).Encode(worker.Message[I]{Data: data}); err != nil {
		return out, fmt.Errorf("write request file: %w", err)
	}

	startParams := a.startParams
	startParams.Args = append(append([]string{}, startParams.Args...), reqFile.Name(), resFile.Name())
	startParams.Env = maps.Clone(startParams.Env)
	if startParams.Env == nil {
		startParams.Env = make(map[string]string, 2)
	}
	startParams.Env["REQUEST_FILE_NAME"] = reqFile.Name()
	startParams.Env["RESPONSE_FILE_NAME"] = resFile.Name()

	w := a.newWorker()

	if err := w.Start(ctx, startParams); err != nil {
		a.log.Error("error starting worker", zap.Error(err))
		return out, err
	}

	event, err := w.WaitFor(ctx, params.Timeout)
	if err != nil {
		_ = w.Kill()
		a.log.Error("error waiting for worker to finish", zap.Error(err))
		return out, err
	}

	if event.Failed() {
		return out, fmt.Errorf("%w: %s", ErrWorkerFailed, event.Stderr)
	}

	var msg worker.Message[O]
	if err := json.NewDecoder(resFile).Decode(&msg); err != nil {
		return out, fmt.Errorf("read response file: %w", err)
	}

	return msg.Data, nil
}

func (a *fileAdapter[I, O]) Stop(worker.StopConfig) (ReleaseFunc, error) {
	// workers exit on their own after every message
	return noopReleaseFunc, nil
}

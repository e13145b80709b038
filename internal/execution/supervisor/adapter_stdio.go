package supervisor

import (
	"context"

	"github.com/lambda-feedback/bgstrip/internal/execution/worker"
	"go.uber.org/zap"
)

type stdioAdapter[I, O any] struct {
	worker worker.Worker[I, O]

	log *zap.Logger
}

func newStdioAdapter[I, O any](log *zap.Logger) *stdioAdapter[I, O] {
	return &stdioAdapter[I, O]{
		worker: worker.NewProcessWorker[I, O](log),
		log:    log,
	}
}

func (a *stdioAdapter[I, O]) Start(ctx context.Context, params worker.StartConfig) error {
	// for stdio, the worker can be started right away, as no
	// message specific data has to be passed via arguments
	if err := a.worker.Start(ctx, params); err != nil {
		a.log.Error("error starting worker", zap.Error(err))
		return err
	}

	return nil
}

func (a *stdioAdapter[I, O]) Send(
	ctx context.Context,
	data I,
	params worker.SendConfig,
) (O, error) {
	res, err := a.worker.Send(ctx, data, params)
	if err != nil {
		a.log.Error("error sending data to worker", zap.Error(err))
		return res, err
	}

	return res, nil
}

func (a *stdioAdapter[I, O]) Stop(params worker.StopConfig) (ReleaseFunc, error) {
	return stopWorker(a.worker, params)
}

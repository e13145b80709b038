package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jackc/puddle/v2"
	"github.com/lambda-feedback/bgstrip/internal/execution/supervisor"
	"go.uber.org/zap"
)

// PooledDispatcher spreads messages over a bounded pool of supervisors.
type PooledDispatcher[I, O any] struct {
	ctx  context.Context
	pool *puddle.Pool[supervisor.Supervisor[I, O]]

	// releases tracks background release goroutines
	releases sync.WaitGroup

	log *zap.Logger
}

var _ Dispatcher[any, any] = (*PooledDispatcher[any, any])(nil)

type PooledDispatcherConfig struct {
	// MaxWorkers is the maximum number of concurrent workers,
	// defaults to the number of CPU cores
	MaxWorkers int

	// Supervisor is the configuration to use for the supervisors
	Supervisor supervisor.Config
}

type PooledDispatcherParams[I, O any] struct {
	// Context bounds the lifetime of pooled workers
	Context context.Context

	// Config is the config for the dispatcher and the underlying supervisors
	Config PooledDispatcherConfig

	// SupervisorFactory is the factory function to create a new supervisor
	SupervisorFactory SupervisorFactory[I, O]

	// Log is the logger to use for the dispatcher
	Log *zap.Logger
}

func NewPooledDispatcher[I, O any](
	params PooledDispatcherParams[I, O],
) (*PooledDispatcher[I, O], error) {
	if params.SupervisorFactory == nil {
		params.SupervisorFactory = defaultSupervisorFactory[I, O]
	}

	if params.Context == nil {
		params.Context = context.Background()
	}

	pool, err := createPool(params)
	if err != nil {
		return nil, err
	}

	return &PooledDispatcher[I, O]{
		pool: pool,
		ctx:  params.Context,
		log:  params.Log.Named("dispatcher_pooled"),
	}, nil
}

func (m *PooledDispatcher[I, O]) Start(context.Context) error {
	// supervisors are created lazily on first use
	return nil
}

func (m *PooledDispatcher[I, O]) Send(ctx context.Context, data I) (O, error) {
	var zero O

	resource, err := m.pool.Acquire(ctx)
	if err != nil {
		return zero, fmt.Errorf("error acquiring supervisor: %w", err)
	}

	res, err := m.sendToSupervisor(ctx, data, resource)
	if err != nil {
		return zero, fmt.Errorf("error sending data: %w", err)
	}

	return res, nil
}

func (m *PooledDispatcher[I, O]) sendToSupervisor(
	ctx context.Context,
	data I,
	resource *puddle.Resource[supervisor.Supervisor[I, O]],
) (O, error) {
	res, err := resource.Value().Send(ctx, data)

	// releasing may wait for a transient worker to exit, which
	// the caller should not have to wait for
	m.releases.Add(1)
	go func() {
		defer m.releases.Done()
		m.dispose(resource, res, err)
	}()

	if err != nil {
		var zero O
		return zero, err
	}

	return res.Data, nil
}

func (m *PooledDispatcher[I, O]) dispose(
	resource *puddle.Resource[supervisor.Supervisor[I, O]],
	res *supervisor.Result[O],
	sendErr error,
) {
	if res != nil && res.Release != nil {
		if err := res.Release(m.ctx); err != nil {
			m.log.Error("destroying supervisor due to error releasing", zap.Error(err))
			resource.Destroy()
			return
		}
	}

	if sendErr != nil {
		m.log.Debug("destroying supervisor due to error")
		resource.Destroy()
		return
	}

	m.log.Debug("releasing supervisor back to pool")
	resource.Release()
}

// Shutdown stops the dispatcher and waits for all workers to finish.
func (m *PooledDispatcher[I, O]) Shutdown(context.Context) error {
	m.releases.Wait()
	m.pool.Close()

	return nil
}

// Stat returns the pool statistics.
func (m *PooledDispatcher[I, O]) Stat() *puddle.Stat {
	return m.pool.Stat()
}

func createPool[I, O any](
	params PooledDispatcherParams[I, O],
) (*puddle.Pool[supervisor.Supervisor[I, O]], error) {
	log := params.Log.Named("dispatcher_pool")

	maxWorkers := params.Config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	constructor := func(ctx context.Context) (supervisor.Supervisor[I, O], error) {
		sv, err := params.SupervisorFactory(supervisor.Params[I, O]{
			Context: params.Context,
			Config:  params.Config.Supervisor,
			Log:     params.Log,
		})
		if err != nil {
			return nil, err
		}

		if err = sv.Start(ctx); err != nil {
			return nil, err
		}

		return sv, nil
	}

	destructor := func(s supervisor.Supervisor[I, O]) {
		wait, err := s.Shutdown(params.Context)
		if err != nil {
			log.Error("error shutting down supervisor", zap.Error(err))
			return
		}

		if wait == nil {
			log.Warn("supervisor did not return a wait function")
			return
		}

		if err := wait(); err != nil {
			log.Error("error waiting for supervisor to shut down", zap.Error(err))
		}
	}

	return puddle.NewPool(&puddle.Config[supervisor.Supervisor[I, O]]{
		Constructor: constructor,
		Destructor:  destructor,
		MaxSize:     int32(maxWorkers),
	})
}

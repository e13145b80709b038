package remover

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Warmer periodically runs a tiny image through a remover, which keeps
// model workers and remote functions hot.
type Warmer struct {
	cron    *cron.Cron
	remover Remover
	timeout time.Duration
	log     *zap.Logger
}

func NewWarmer(schedule string, remover Remover, log *zap.Logger) (*Warmer, error) {
	log = log.Named("warmup")

	w := &Warmer{
		cron:    cron.New(cron.WithLogger(cronLogger{log.Sugar()})),
		remover: remover,
		timeout: time.Minute,
		log:     log,
	}

	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("invalid warmup schedule %q: %w", schedule, err)
	}

	return w, nil
}

// Warm runs a single warmup removal.
func (w *Warmer) Warm(ctx context.Context) error {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})

	_, err := w.remover.Remove(ctx, img)
	return err
}

func (w *Warmer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()

	if err := w.Warm(ctx); err != nil {
		w.log.Warn("warmup failed", zap.Error(err))
		return
	}

	w.log.Debug("warmup done", zap.Duration("took", time.Since(start)))
}

func (w *Warmer) Start() {
	w.cron.Start()
}

// Stop stops the schedule and waits for a running warmup to finish.
func (w *Warmer) Stop(ctx context.Context) error {
	select {
	case <-w.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger routes cron logs to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

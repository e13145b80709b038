package remover

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWarmer_Warm(t *testing.T) {
	var size image.Rectangle

	r := Func(func(_ context.Context, img image.Image) (image.Image, error) {
		size = img.Bounds()
		return img, nil
	})

	w, err := NewWarmer("@hourly", r, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, w.Warm(context.Background()))
	assert.Equal(t, image.Rect(0, 0, 1, 1), size)
}

func TestWarmer_RunsOnSchedule(t *testing.T) {
	var calls atomic.Int32

	r := Func(func(_ context.Context, img image.Image) (image.Image, error) {
		calls.Add(1)
		return img, nil
	})

	w, err := NewWarmer("@every 1s", r, zaptest.NewLogger(t))
	require.NoError(t, err)

	w.Start()

	require.Eventually(t, func() bool {
		return calls.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)

	assert.NoError(t, w.Stop(context.Background()))
}

func TestWarmer_InvalidSchedule(t *testing.T) {
	_, err := NewWarmer("every now and then", Func(nil), zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "invalid warmup schedule")
}

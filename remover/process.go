package remover

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/lambda-feedback/bgstrip/imaging"
	"github.com/lambda-feedback/bgstrip/internal/execution"
	"github.com/lambda-feedback/bgstrip/internal/execution/supervisor"
	"go.uber.org/zap"
)

// ImageMessage is the payload exchanged with worker processes in
// both directions.
type ImageMessage struct {
	// Image is a base64 encoded PNG, optionally as a data URI
	Image string `json:"image"`
}

// Process hands images to supervised worker processes, e.g. a python
// script wrapping a segmentation model.
type Process struct {
	dispatcher execution.Dispatcher[ImageMessage, ImageMessage]
	log        *zap.Logger
}

var (
	_ Remover = (*Process)(nil)
	_ Starter = (*Process)(nil)
	_ Stopper = (*Process)(nil)
)

func NewProcess(ctx context.Context, config execution.Config, log *zap.Logger) (*Process, error) {
	// rpc workers may be running already, everything else is spawned
	if config.Supervisor.StartParams.Cmd == "" && config.Supervisor.Interface != supervisor.RpcIO {
		return nil, fmt.Errorf("%w: process.cmd", ErrMissingConfig)
	}

	log = log.Named("process")

	dispatcher, err := execution.NewDispatcher[ImageMessage, ImageMessage](execution.Params{
		Context: ctx,
		Config:  config,
		Log:     log,
	})
	if err != nil {
		return nil, err
	}

	return &Process{
		dispatcher: dispatcher,
		log:        log,
	}, nil
}

func (p *Process) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	data, err := imaging.EncodePNG(img, png.BestSpeed)
	if err != nil {
		return nil, err
	}

	res, err := p.dispatcher.Send(ctx, ImageMessage{
		Image: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}

	return decodeImageString(res.Image)
}

func (p *Process) Start(ctx context.Context) error {
	return p.dispatcher.Start(ctx)
}

func (p *Process) Stop(ctx context.Context) error {
	return p.dispatcher.Shutdown(ctx)
}

// decodeImageString decodes a base64 image, with or without data URI prefix.
func decodeImageString(s string) (image.Image, error) {
	img, err := imaging.DecodeDataURI(s)
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return img, nil
}

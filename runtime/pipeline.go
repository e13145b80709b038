package runtime

import (
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/lambda-feedback/bgstrip/imaging"
	"github.com/lambda-feedback/bgstrip/remover"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Pipeline turns an encoded input image into an encoded PNG with
// the background removed.
type Pipeline struct {
	remover     remover.Remover
	compression png.CompressionLevel
	maxBytes    int
	maxPixels   int
	log         *zap.Logger
}

type PipelineParams struct {
	fx.In

	Remover remover.Remover
	Config  Config
	Log     *zap.Logger
}

func NewPipeline(params PipelineParams) (*Pipeline, error) {
	compression, err := imaging.ParseCompression(params.Config.PNGCompression)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		remover:     params.Remover,
		compression: compression,
		maxBytes:    params.Config.MaxInputBytes,
		maxPixels:   params.Config.MaxPixels,
		log:         params.Log.Named("pipeline"),
	}, nil
}

// Process runs the pipeline on a base64 image or data URI and returns
// a PNG data URI. Errors are always *ProcessingError.
func (p *Pipeline) Process(ctx context.Context, encoded string) (string, error) {
	data, err := imaging.DecodeBase64(imaging.StripDataURI(encoded))
	if err != nil {
		return "", &ProcessingError{Stage: StageDecodeBase64, Err: err}
	}

	if p.maxBytes > 0 && len(data) > p.maxBytes {
		return "", &ProcessingError{
			Stage: StageDecodeBase64,
			Err:   fmt.Errorf("%w: %d > %d bytes", ErrInputTooLarge, len(data), p.maxBytes),
		}
	}

	img, format, err := imaging.DecodeImage(data, p.maxPixels)
	if err != nil {
		return "", &ProcessingError{Stage: StageDecodeImage, Err: err}
	}

	bounds := img.Bounds()

	p.log.Debug("decoded image",
		zap.String("format", format),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
	)

	out, err := p.remover.Remove(ctx, img)
	if err != nil {
		return "", &ProcessingError{Stage: StageRemoveBackground, Err: err}
	}

	if out == nil {
		return "", &ProcessingError{Stage: StageRemoveBackground, Err: fmt.Errorf("remover returned no image")}
	}

	uri, err := imaging.EncodeDataURI(p.normalize(out, bounds), p.compression)
	if err != nil {
		return "", &ProcessingError{Stage: StageEncodePNG, Err: err}
	}

	return uri, nil
}

// normalize scales out back to the input size if the remover changed
// it and converts to NRGBA.
func (p *Pipeline) normalize(out image.Image, in image.Rectangle) *image.NRGBA {
	if ob := out.Bounds(); ob.Dx() != in.Dx() || ob.Dy() != in.Dy() {
		p.log.Debug("restoring input size",
			zap.Stringer("got", ob.Size()),
			zap.Stringer("want", in.Size()),
		)

		out = imaging.Resample(out, in.Dx(), in.Dy())
	}

	return imaging.ToNRGBA(out)
}

// Package imaging holds the image codecs and pixel helpers shared by
// the request pipeline and the background removers.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	// register decoders for content sniffing
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DataURIPrefix is the prefix of every encoded output image.
const DataURIPrefix = "data:image/png;base64,"

const base64Marker = "base64,"

var (
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrImageTooLarge = errors.New("image exceeds pixel limit")
)

// StripDataURI drops everything up to and including the first
// "base64," marker. Strings without the marker are returned as is.
func StripDataURI(s string) string {
	if _, after, found := strings.Cut(s, base64Marker); found {
		return after
	}

	return s
}

// DecodeBase64 decodes standard base64, with or without padding.
// Whitespace, as found in wrapped data URIs, is ignored.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)

	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// DecodeImage decodes an image of any registered format. If maxPixels
// is positive, the header is inspected first and oversized images are
// rejected before their pixel data is allocated.
func DecodeImage(data []byte, maxPixels int) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, ErrEmptyImage
	}

	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, err
	}

	return img, format, nil
}

// translucent hides the opacity of an image from the PNG encoder,
// which otherwise drops the alpha channel of opaque images.
type translucent struct {
	image.Image
}

func (translucent) Opaque() bool {
	return false
}

// EncodePNG encodes img as PNG using the given compression level.
// Opaque color images are still written with an alpha channel.
func EncodePNG(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer

	if _, ok := img.(image.PalettedImage); !ok {
		img = translucent{img}
	}

	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// EncodeDataURI encodes img as a base64 PNG data URI.
func EncodeDataURI(img image.Image, level png.CompressionLevel) (string, error) {
	data, err := EncodePNG(img, level)
	if err != nil {
		return "", err
	}

	return DataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeDataURI reverses EncodeDataURI. Plain base64 without the
// data URI prefix is accepted as well.
func DecodeDataURI(s string) (image.Image, error) {
	data, err := DecodeBase64(StripDataURI(s))
	if err != nil {
		return nil, err
	}

	img, _, err := DecodeImage(data, 0)
	return img, err
}

// ParseCompression maps a config value to a png.CompressionLevel.
func ParseCompression(s string) (png.CompressionLevel, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	default:
		return 0, fmt.Errorf("unknown png compression %q", s)
	}
}

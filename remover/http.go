package remover

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/lambda-feedback/bgstrip/imaging"
	"github.com/lambda-feedback/bgstrip/util/httpclient"
	"github.com/segmentio/ksuid"
)

// Rembg calls the HTTP api of a rembg server (`rembg s`).
type Rembg struct {
	url    string
	client httpclient.IClient
}

var _ Remover = (*Rembg)(nil)

func NewRembg(config RembgConfig, client httpclient.IClient) (*Rembg, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("%w: rembg.url", ErrMissingConfig)
	}

	return &Rembg{
		url:    strings.TrimRight(config.URL, "/") + "/api/remove",
		client: clientOrDefault(client),
	}, nil
}

func (r *Rembg) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	return postImage(ctx, r.client, r.url, "file", nil, img)
}

// PhotoRoom calls the PhotoRoom segmentation api.
type PhotoRoom struct {
	url    string
	apiKey string
	client httpclient.IClient
}

var _ Remover = (*PhotoRoom)(nil)

func NewPhotoRoom(config PhotoRoomConfig, client httpclient.IClient) (*PhotoRoom, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: photoroom.api_key", ErrMissingConfig)
	}

	if config.URL == "" {
		return nil, fmt.Errorf("%w: photoroom.url", ErrMissingConfig)
	}

	return &PhotoRoom{
		url:    config.URL,
		apiKey: config.APIKey,
		client: clientOrDefault(client),
	}, nil
}

func (r *PhotoRoom) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	header := map[string]string{"x-api-key": r.apiKey}
	return postImage(ctx, r.client, r.url, "image_file", header, img)
}

func clientOrDefault(client httpclient.IClient) httpclient.IClient {
	if client != nil {
		return client
	}

	// no client timeout, calls are bounded by the remover timeout
	return httpclient.NewHTTPClientWith(&http.Client{})
}

// postImage uploads img as a PNG multipart field and decodes the image
// returned in the response body.
func postImage(
	ctx context.Context,
	client httpclient.IClient,
	url string,
	field string,
	header map[string]string,
	img image.Image,
) (image.Image, error) {
	body, contentType, err := multipartImage(field, img)
	if err != nil {
		return nil, err
	}

	h := map[string]string{
		"Content-Type": contentType,
		"Accept":       "image/png",
	}
	for k, v := range header {
		h[k] = v
	}

	res, err := client.DoHTTPRequest(ctx, &httpclient.RequestParam{
		RequestURI: url,
		Method:     http.MethodPost,
		Header:     h,
		Body:       body,
	})
	if err != nil {
		return nil, err
	}

	out, _, err := imaging.DecodeImage(res.Body, 0)
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return out, nil
}

func multipartImage(field string, img image.Image) ([]byte, string, error) {
	data, err := imaging.EncodePNG(img, png.BestSpeed)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name=%q; filename="%s.png"`, field, ksuid.New().String(),
	))
	h.Set("Content-Type", "image/png")

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}

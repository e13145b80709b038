package runtime

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/lambda-feedback/bgstrip/imaging"
	"github.com/lambda-feedback/bgstrip/remover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type processorFunc func(ctx context.Context, encoded string) (string, error)

func (f processorFunc) Process(ctx context.Context, encoded string) (string, error) {
	return f(ctx, encoded)
}

func solidPNG(t *testing.T, w, h int, c color.Color) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func body(t *testing.T, v any) json.RawMessage {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return data
}

func createHandler(t *testing.T, config Config) *RuntimeHandler {
	t.Helper()

	if config.PNGCompression == "" {
		config.PNGCompression = "speed"
	}

	p, err := NewPipeline(PipelineParams{
		Remover: remover.NewBuiltin(remover.BuiltinConfig{Tolerance: 24}),
		Config:  config,
		Log:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	h, err := newRuntimeHandler(p, config, zaptest.NewLogger(t))
	require.NoError(t, err)

	return h
}

func assertCORS(t *testing.T, res Response) {
	t.Helper()

	assert.Equal(t, "*", res.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", res.Headers["Access-Control-Allow-Headers"])
}

func decodeResult(t *testing.T, res Response) image.Image {
	t.Helper()

	uri := res.Body["image"]
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), uri)

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	return img
}

func TestHandle_Options(t *testing.T) {
	h := createHandler(t, Config{})

	res := h.Handle(context.Background(), Request{Method: "OPTIONS", Body: body(t, map[string]any{})})

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Nil(t, res.Body)
	assert.Nil(t, res.BodyBytes())
	assertCORS(t, res)
	assert.NotContains(t, res.Headers, "Content-Type")
}

func TestHandle_Options_IgnoresBody(t *testing.T) {
	h := createHandler(t, Config{})

	res := h.Handle(context.Background(), Request{Method: "OPTIONS", Body: body(t, map[string]any{"image": 1})})
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestHandle_Options_IsCaseSensitive(t *testing.T) {
	h := createHandler(t, Config{})

	res := h.Handle(context.Background(), Request{Method: "options", Body: body(t, map[string]any{})})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "No image data provided", res.Body["error"])
}

func TestHandle_MissingImage(t *testing.T) {
	h := createHandler(t, Config{})

	bodies := map[string]json.RawMessage{
		"empty object": body(t, map[string]any{}),
		"empty image":  body(t, map[string]any{"image": ""}),
		"null image":   body(t, map[string]any{"image": nil}),
		"zero image":   json.RawMessage(`{"image":0}`),
		"float zero":   json.RawMessage(`{"image":0.0}`),
		"false image":  json.RawMessage(`{"image":false}`),
		"empty array":  json.RawMessage(`{"image":[]}`),
		"empty map":    json.RawMessage(`{"image":{}}`),
		"no body":      nil,
		"null body":    json.RawMessage(`null`),
		"string body":  json.RawMessage(`"image"`),
		"array body":   json.RawMessage(`[{"image":"x"}]`),
		"number body":  json.RawMessage(`42`),
	}

	for name, b := range bodies {
		t.Run(name, func(t *testing.T) {
			res := h.Handle(context.Background(), Request{Method: "POST", Body: b})

			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			assert.Equal(t, map[string]string{"error": "No image data provided"}, res.Body)
			assertCORS(t, res)
			assert.Equal(t, "application/json", res.Headers["Content-Type"])
		})
	}
}

func TestHandle_InvalidBase64(t *testing.T) {
	h := createHandler(t, Config{})

	res := h.Handle(context.Background(), Request{
		Method: "POST",
		Body:   body(t, map[string]any{"image": "not-valid-base64!!"}),
	})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.NotEmpty(t, res.Body["error"])
	assertCORS(t, res)
}

func TestHandle_NotAnImage(t *testing.T) {
	h := createHandler(t, Config{})

	res := h.Handle(context.Background(), Request{
		Method: "POST",
		Body:   body(t, map[string]any{"image": base64.StdEncoding.EncodeToString([]byte("hello world"))}),
	})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Contains(t, res.Body["error"], "decode image")
	assertCORS(t, res)
}

func TestHandle_NonStringImage(t *testing.T) {
	h := createHandler(t, Config{})

	bodies := map[string]json.RawMessage{
		"number":    json.RawMessage(`{"image":42}`),
		"true":      json.RawMessage(`{"image":true}`),
		"array":     json.RawMessage(`{"image":["x"]}`),
		"object":    json.RawMessage(`{"image":{"data":"x"}}`),
		"malformed": json.RawMessage(`{"image":`),
	}

	for name, b := range bodies {
		t.Run(name, func(t *testing.T) {
			res := h.Handle(context.Background(), Request{Method: "POST", Body: b})

			assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
			assert.NotEmpty(t, res.Body["error"])
			assertCORS(t, res)
		})
	}

	res := h.Handle(context.Background(), Request{Method: "POST", Body: json.RawMessage(`{"image":42}`)})
	assert.Contains(t, res.Body["error"], "invalid request body")
}

func TestIsEmptyValue(t *testing.T) {
	tests := []struct {
		data  string
		empty bool
	}{
		{``, true},
		{`null`, true},
		{`false`, true},
		{`0`, true},
		{`-0.0`, true},
		{`""`, true},
		{`[]`, true},
		{`{}`, true},
		{`true`, false},
		{`1`, false},
		{`"x"`, false},
		{`[0]`, false},
		{`{"a":null}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			assert.Equal(t, tt.empty, isEmptyValue(json.RawMessage(tt.data)))
		})
	}
}

func TestHandle_RedSquare(t *testing.T) {
	h := createHandler(t, Config{})

	res := h.Handle(context.Background(), Request{
		Method: "POST",
		Body:   body(t, map[string]any{"image": solidPNG(t, 10, 10, color.NRGBA{R: 0xff, A: 0xff})}),
	})

	require.Equal(t, http.StatusOK, res.StatusCode, res.Body["error"])
	assertCORS(t, res)
	assert.Equal(t, "application/json", res.Headers["Content-Type"])

	img := decodeResult(t, res)
	assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())

	// the png carries an alpha channel
	assert.IsType(t, &image.NRGBA{}, img)
}

func TestHandle_DataURIPrefixIsIgnored(t *testing.T) {
	h := createHandler(t, Config{})

	encoded := solidPNG(t, 6, 4, color.NRGBA{G: 0xff, A: 0xff})

	plain := h.Handle(context.Background(), Request{
		Method: "POST",
		Body:   body(t, map[string]any{"image": encoded}),
	})

	prefixed := h.Handle(context.Background(), Request{
		Method: "POST",
		Body:   body(t, map[string]any{"image": "data:image/jpeg;base64," + encoded}),
	})

	require.Equal(t, http.StatusOK, plain.StatusCode)
	assert.Equal(t, plain, prefixed)
}

func TestHandle_JPEGInput(t *testing.T) {
	h := createHandler(t, Config{})

	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	res := h.Handle(context.Background(), Request{
		Body: body(t, map[string]any{"image": base64.StdEncoding.EncodeToString(buf.Bytes())}),
	})

	require.Equal(t, http.StatusOK, res.StatusCode, res.Body["error"])
	assert.Equal(t, image.Rect(0, 0, 16, 12), decodeResult(t, res).Bounds())
}

func TestHandle_OtherMethodsAreProcessed(t *testing.T) {
	h := createHandler(t, Config{})

	res := h.Handle(context.Background(), Request{
		Method: "PUT",
		Body:   body(t, map[string]any{"image": solidPNG(t, 2, 2, color.White)}),
	})

	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHandle_RemoverError(t *testing.T) {
	h, err := newRuntimeHandler(processorFunc(func(context.Context, string) (string, error) {
		return "", &ProcessingError{Stage: StageRemoveBackground, Err: errors.New("model exploded")}
	}), Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	res := h.Handle(context.Background(), Request{Body: body(t, map[string]any{"image": "x"})})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "remove background: model exploded", res.Body["error"])
}

func TestHandle_SanitizeErrors(t *testing.T) {
	h := createHandler(t, Config{SanitizeErrors: true})

	res := h.Handle(context.Background(), Request{
		Body: body(t, map[string]any{"image": "not-valid-base64!!"}),
	})
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "failed to process image", res.Body["error"])

	// client errors are not sanitized
	res = h.Handle(context.Background(), Request{Body: body(t, map[string]any{})})
	assert.Equal(t, "No image data provided", res.Body["error"])
}

func TestHandle_InputTooLarge(t *testing.T) {
	h := createHandler(t, Config{MaxInputBytes: 16})

	res := h.Handle(context.Background(), Request{
		Body: body(t, map[string]any{"image": solidPNG(t, 10, 10, color.White)}),
	})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Contains(t, res.Body["error"], ErrInputTooLarge.Error())
}

func TestHandle_TooManyPixels(t *testing.T) {
	h := createHandler(t, Config{MaxPixels: 50})

	res := h.Handle(context.Background(), Request{
		Body: body(t, map[string]any{"image": solidPNG(t, 10, 10, color.White)}),
	})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Contains(t, res.Body["error"], imaging.ErrImageTooLarge.Error())
}

func TestResponse_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(newResponse(http.StatusNoContent, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"statusCode": 204,
		"headers": {
			"Access-Control-Allow-Origin": "*",
			"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type"
		},
		"body": ""
	}`, string(data))

	data, err = json.Marshal(newErrorResponse(http.StatusBadRequest, "No image data provided"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"statusCode": 400,
		"headers": {
			"Access-Control-Allow-Origin": "*",
			"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
			"Content-Type": "application/json"
		},
		"body": {"error": "No image data provided"}
	}`, string(data))
}

func TestRequest_UnmarshalJSON(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"method":"POST","body":{"image":"abc"}}`), &req))

	assert.Equal(t, "POST", req.Method)
	assert.JSONEq(t, `{"image":"abc"}`, string(req.Body))
}

func TestCORSHeaders_ReturnsFreshMap(t *testing.T) {
	a := CORSHeaders()
	a["X-Test"] = "1"

	assert.NotContains(t, CORSHeaders(), "X-Test")
}

package remover

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/lambda-feedback/bgstrip/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	input *lambda.InvokeInput
	out   *lambda.InvokeOutput
	err   error
}

func (f *fakeInvoker) Invoke(
	_ context.Context,
	input *lambda.InvokeInput,
	_ ...func(*lambda.Options),
) (*lambda.InvokeOutput, error) {
	f.input = input
	return f.out, f.err
}

func resultPayload(t *testing.T, status int, body any) []byte {
	t.Helper()

	data, err := json.Marshal(map[string]any{
		"statusCode": status,
		"headers":    map[string]string{"Content-Type": "application/json"},
		"body":       body,
	})
	require.NoError(t, err)

	return data
}

func transparentURI(t *testing.T, w, h int) string {
	t.Helper()

	uri, err := imaging.EncodeDataURI(image.NewNRGBA(image.Rect(0, 0, w, h)), png.BestSpeed)
	require.NoError(t, err)

	return uri
}

func TestLambda_Remove(t *testing.T) {
	invoker := &fakeInvoker{
		out: &lambda.InvokeOutput{
			StatusCode: 200,
			Payload:    resultPayload(t, 200, map[string]string{"image": transparentURI(t, 4, 4)}),
		},
	}

	l := NewLambdaWithClient(LambdaConfig{Function: "bgstrip", Qualifier: "live"}, invoker)

	out, err := l.Remove(context.Background(), square(4, 1))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())

	require.NotNil(t, invoker.input)
	assert.Equal(t, "bgstrip", aws.ToString(invoker.input.FunctionName))
	assert.Equal(t, "live", aws.ToString(invoker.input.Qualifier))

	var req struct {
		Method string            `json:"method"`
		Body   map[string]string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(invoker.input.Payload, &req))
	assert.Equal(t, "POST", req.Method)
	assert.Contains(t, req.Body["image"], imaging.DataURIPrefix)
}

func TestLambda_Remove_StringBody(t *testing.T) {
	body, err := json.Marshal(map[string]string{"image": transparentURI(t, 3, 2)})
	require.NoError(t, err)

	invoker := &fakeInvoker{
		out: &lambda.InvokeOutput{Payload: resultPayload(t, 200, string(body))},
	}

	out, err := NewLambdaWithClient(LambdaConfig{Function: "f"}, invoker).Remove(context.Background(), square(3, 0))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
}

func TestLambda_Remove_ErrorStatus(t *testing.T) {
	invoker := &fakeInvoker{
		out: &lambda.InvokeOutput{
			Payload: resultPayload(t, 500, map[string]string{"error": "model crashed"}),
		},
	}

	_, err := NewLambdaWithClient(LambdaConfig{Function: "f"}, invoker).Remove(context.Background(), square(3, 0))
	assert.ErrorIs(t, err, ErrInvokeFailed)
	assert.ErrorContains(t, err, "model crashed")
}

func TestLambda_Remove_FunctionError(t *testing.T) {
	invoker := &fakeInvoker{
		out: &lambda.InvokeOutput{
			FunctionError: aws.String("Unhandled"),
			Payload:       []byte(`{"errorMessage":"boom"}`),
		},
	}

	_, err := NewLambdaWithClient(LambdaConfig{Function: "f"}, invoker).Remove(context.Background(), square(3, 0))
	assert.ErrorIs(t, err, ErrInvokeFailed)
	assert.ErrorContains(t, err, "boom")
}

func TestLambda_Remove_InvokeError(t *testing.T) {
	invoker := &fakeInvoker{err: assert.AnError}

	_, err := NewLambdaWithClient(LambdaConfig{Function: "f"}, invoker).Remove(context.Background(), square(3, 0))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLambda_New_RequiresFunction(t *testing.T) {
	_, err := NewLambda(context.Background(), LambdaConfig{})
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestDecodeLambdaBody(t *testing.T) {
	body, err := decodeLambdaBody(json.RawMessage(`""`))
	require.NoError(t, err)
	assert.Empty(t, body)

	body, err = decodeLambdaBody(json.RawMessage(`{"error":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", body["error"])

	body, err = decodeLambdaBody(json.RawMessage(`"{\"image\":\"y\"}"`))
	require.NoError(t, err)
	assert.Equal(t, "y", body["image"])

	_, err = decodeLambdaBody(json.RawMessage(`[1]`))
	assert.Error(t, err)
}

package remover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/lambda-feedback/bgstrip/imaging"
)

var ErrInvokeFailed = errors.New("lambda invocation failed")

// Invoker is the subset of the lambda client used by Lambda.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Lambda delegates removal to another function that speaks the
// same request/response contract as this service.
type Lambda struct {
	function  string
	qualifier string
	client    Invoker
}

var _ Remover = (*Lambda)(nil)

func NewLambda(ctx context.Context, config LambdaConfig) (*Lambda, error) {
	if config.Function == "" {
		return nil, fmt.Errorf("%w: lambda.function", ErrMissingConfig)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewLambdaWithClient(config, lambda.NewFromConfig(cfg)), nil
}

func NewLambdaWithClient(config LambdaConfig, client Invoker) *Lambda {
	return &Lambda{
		function:  config.Function,
		qualifier: config.Qualifier,
		client:    client,
	}
}

type lambdaRequest struct {
	Method string            `json:"method"`
	Body   map[string]string `json:"body"`
}

type lambdaResponse struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

func (l *Lambda) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	uri, err := imaging.EncodeDataURI(img, png.BestSpeed)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(lambdaRequest{
		Method: "POST",
		Body:   map[string]string{"image": uri},
	})
	if err != nil {
		return nil, err
	}

	input := &lambda.InvokeInput{
		FunctionName: aws.String(l.function),
		Payload:      payload,
	}
	if l.qualifier != "" {
		input.Qualifier = aws.String(l.qualifier)
	}

	out, err := l.client.Invoke(ctx, input)
	if err != nil {
		return nil, err
	}

	if out.FunctionError != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvokeFailed, aws.ToString(out.FunctionError), out.Payload)
	}

	var res lambdaResponse
	if err := json.Unmarshal(out.Payload, &res); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %w", ErrInvokeFailed, err)
	}

	body, err := decodeLambdaBody(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid response body: %w", ErrInvokeFailed, err)
	}

	if res.StatusCode != 200 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvokeFailed, res.StatusCode, body["error"])
	}

	return decodeImageString(body["image"])
}

// decodeLambdaBody accepts the body as object or as a JSON encoded
// string, as returned by proxy integrations.
func decodeLambdaBody(raw json.RawMessage) (map[string]string, error) {
	var body map[string]string

	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return map[string]string{}, nil
		}
		raw = json.RawMessage(s)
	}

	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	return body, nil
}

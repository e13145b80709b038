package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

var ErrNilRequestParam = errors.New("request param is nil")

// IClient is the minimal http client used by the remote removers.
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) (*Result, error)
}

type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string

	// Body is either an io.Reader, a []byte or any
	// value that is sent json encoded.
	Body any

	// Timeout overrides the client timeout if positive.
	Timeout time.Duration
}

type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP request failed with status %d: %s", e.StatusCode, e.Body)
}

type HTTPClient struct {
	client *http.Client
}

var _ IClient = (*HTTPClient)(nil)

func NewHTTPClient() IClient {
	return &HTTPClient{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// NewHTTPClientWith wraps an existing *http.Client.
func NewHTTPClientWith(client *http.Client) IClient {
	return &HTTPClient{client: client}
}

func (c *HTTPClient) DoHTTPRequest(ctx context.Context, p *RequestParam) (*Result, error) {
	if p == nil {
		return nil, ErrNilRequestParam
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	body, err := requestBody(p.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	method := p.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, p.RequestURI, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range p.Header {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := data
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func requestBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}

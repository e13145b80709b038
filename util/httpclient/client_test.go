package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient()
	assert.NotNil(t, client)

	httpClient, ok := client.(*HTTPClient)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, httpClient.client.Timeout)
}

func TestHTTPClient_DoHTTPRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		requestParam *RequestParam
		handler      http.HandlerFunc
		wantErr      bool
		wantErrMsg   string
		wantBody     string
	}{
		{
			name:         "get request",
			requestParam: &RequestParam{Method: http.MethodGet},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				_, _ = w.Write([]byte(`ok`))
			},
			wantBody: "ok",
		},
		{
			name: "post with json body",
			requestParam: &RequestParam{
				Method: http.MethodPost,
				Body:   map[string]any{"key": "value"},
				Header: map[string]string{"Content-Type": "application/json"},
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var data map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
				assert.Equal(t, "value", data["key"])

				_, _ = w.Write([]byte(`{"received":true}`))
			},
			wantBody: `{"received":true}`,
		},
		{
			name: "post with reader body",
			requestParam: &RequestParam{
				Method: http.MethodPost,
				Body:   strings.NewReader("raw"),
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Equal(t, "raw", string(body))
			},
		},
		{
			name:         "server error",
			requestParam: &RequestParam{Method: http.MethodGet},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error": "server error"}`))
			},
			wantErr:    true,
			wantErrMsg: "HTTP request failed with status 500",
		},
		{
			name:         "timeout",
			requestParam: &RequestParam{Method: http.MethodGet, Timeout: 50 * time.Millisecond},
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			wantErr:    true,
			wantErrMsg: "context deadline exceeded",
		},
		{
			name:       "nil request param",
			wantErr:    true,
			wantErrMsg: "request param is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := tt.handler
			if handler == nil {
				handler = func(http.ResponseWriter, *http.Request) {}
			}

			server := httptest.NewServer(handler)
			defer server.Close()

			if tt.requestParam != nil {
				tt.requestParam.RequestURI = server.URL
			}

			res, err := NewHTTPClient().DoHTTPRequest(context.Background(), tt.requestParam)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.StatusCode)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, string(res.Body))
			}
		})
	}
}

func TestHTTPClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusPaymentRequired)
	}))
	defer server.Close()

	_, err := NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{RequestURI: server.URL})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusPaymentRequired, statusErr.StatusCode)
	assert.Equal(t, "nope", statusErr.Body)
}

package runtime

import (
	"encoding/json"
)

// Request is the platform-neutral form of an incoming invocation.
type Request struct {
	// Method is the HTTP method, an empty method is treated as POST
	Method string `json:"method"`

	// Body is the raw JSON body. Anything other than a JSON object
	// is treated as an empty payload.
	Body json.RawMessage `json:"body,omitempty"`
}

// Payload is the typed request body.
type Payload struct {
	// Image is a base64 encoded image, optionally as a data URI
	Image string `json:"image,omitempty"`
}

// Response is the platform-neutral form of an outgoing response.
type Response struct {
	StatusCode int
	Headers    map[string]string

	// Body is nil for responses without content
	Body map[string]string
}

// MarshalJSON encodes the response as {statusCode, headers, body}.
// A nil body is encoded as the empty string.
func (r Response) MarshalJSON() ([]byte, error) {
	var body any = ""
	if r.Body != nil {
		body = r.Body
	}

	return json.Marshal(struct {
		StatusCode int               `json:"statusCode"`
		Headers    map[string]string `json:"headers"`
		Body       any               `json:"body"`
	}{
		StatusCode: r.StatusCode,
		Headers:    r.Headers,
		Body:       body,
	})
}

// BodyBytes returns the JSON encoded body, or nil for an empty body.
func (r Response) BodyBytes() []byte {
	if r.Body == nil {
		return nil
	}

	// a map[string]string always marshals
	data, _ := json.Marshal(r.Body)
	return data
}

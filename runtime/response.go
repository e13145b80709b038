package runtime

const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
	HeaderContentType  = "Content-Type"
)

// CORSHeaders returns the headers attached to every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		HeaderAllowOrigin:  "*",
		HeaderAllowHeaders: "authorization, x-client-info, apikey, content-type",
	}
}

// newResponse creates a new response. Responses with a body are
// marked as JSON.
func newResponse(status int, body map[string]string) Response {
	headers := CORSHeaders()

	if body != nil {
		headers[HeaderContentType] = "application/json"
	}

	return Response{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
}

// newErrorResponse creates a new error response.
func newErrorResponse(status int, message string) Response {
	return newResponse(status, map[string]string{"error": message})
}

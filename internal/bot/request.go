package bot

import (
	"net/http"
	"net/url"
)

// Request is the transport-agnostic shape of one inbound webhook request.
// RawBody holds the exact unparsed bytes for signature verification;
// Body is the parsed JSON document.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	RawBody []byte
	Body    map[string]any
	Params  map[string]string
	URL     string
}

// Header returns the first value for the named header.
func (r *Request) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// Response is returned verbatim to the transport layer.
type Response struct {
	Status int
	Body   any
}

// PreprocessResult is the outcome of a connector's pre-dispatch gate.
// When ShouldNext is false the pipeline stops immediately and Response
// is handed back to the transport layer without touching the session
// store or invoking any handler.
type PreprocessResult struct {
	ShouldNext bool
	Response   *Response
}

// Next is the preprocess result that lets the pipeline continue.
func Next() PreprocessResult {
	return PreprocessResult{ShouldNext: true}
}

// ShortCircuit stops the pipeline and returns the given response.
func ShortCircuit(status int, body any) PreprocessResult {
	return PreprocessResult{
		ShouldNext: false,
		Response:   &Response{Status: status, Body: body},
	}
}

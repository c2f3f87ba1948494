package httpclient

import (
	"io"
	"net/http"

	"github.com/kbukum/llmx/httpclient/sse"
)

// Request is one call against the adapter's BaseURL. Method defaults to
// POST. Path may also be an absolute URL.
//
// Body may be an io.Reader, []byte (sent as JSON), a string (sent as plain
// text) or any other value, which is JSON encoded.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    any
}

// Response is a fully read reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StreamResponse is an open reply whose body is consumed incrementally.
// Exactly one of SSE and Body is set: SSE for text/event-stream replies,
// Body for everything else (NDJSON in practice).
type StreamResponse struct {
	StatusCode int
	Header     http.Header
	SSE        *sse.Reader
	Body       io.ReadCloser

	closer io.Closer
}

// Close releases the connection. Calling it again is harmless.
func (r *StreamResponse) Close() error {
	switch {
	case r.closer != nil:
		return r.closer.Close()
	case r.SSE != nil:
		return r.SSE.Close()
	case r.Body != nil:
		return r.Body.Close()
	}
	return nil
}

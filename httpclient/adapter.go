package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/llmx/httpclient/sse"
	"github.com/kbukum/llmx/resilience"
)

// Adapter is the HTTP transport owned by one provider adapter. A single
// instance serves blocking calls and concurrent calls from goroutines alike.
type Adapter struct {
	httpClient   *http.Client
	streamClient *http.Client
	config       Config
	rl           *resilience.RateLimiter
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Streams may legitimately run longer than Timeout; only the wait for
	// response headers is bounded. Idle gaps are enforced by the reader.
	streamTransport := transport.Clone()
	streamTransport.ResponseHeaderTimeout = cfg.Timeout

	c := &Adapter{
		httpClient:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		streamClient: &http.Client{Transport: streamTransport},
		config:       cfg,
	}
	if cfg.RateLimiter != nil {
		c.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return c, nil
}

// Do executes an HTTP request and returns the complete response.
func (c *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry != nil {
		return resilience.Retry(ctx, *c.config.Retry, func(int) (*Response, error) {
			return c.doOnce(ctx, req)
		})
	}
	return c.doOnce(ctx, req)
}

// DoStream opens a streaming request. Opening is retried like Do since no
// data has reached the caller yet; the stream itself is never retried.
// The caller must close the returned StreamResponse when done.
func (c *Adapter) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	if c.config.Retry != nil {
		return resilience.Retry(ctx, *c.config.Retry, func(int) (*StreamResponse, error) {
			return c.doStream(ctx, req)
		})
	}
	return c.doStream(ctx, req)
}

// Close releases idle connections held by the adapter.
func (c *Adapter) Close(_ context.Context) error {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}

func (c *Adapter) doOnce(ctx context.Context, req Request) (*Response, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, c.mapError(NewTimeoutError(err))
	}

	httpReq, reqErr := c.buildRequest(ctx, req)
	if reqErr != nil {
		return nil, c.mapError(reqErr)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.mapError(transportError(ctx, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.mapError(transportError(ctx, fmt.Errorf("read response body: %w", err)))
	}

	result := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if classErr := ClassifyResponse(resp.StatusCode, resp.Header, body); classErr != nil {
		return result, c.mapError(classErr)
	}
	return result, nil
}

func (c *Adapter) doStream(ctx context.Context, req Request) (*StreamResponse, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, c.mapError(NewTimeoutError(err))
	}

	httpReq, reqErr := c.buildRequest(ctx, req)
	if reqErr != nil {
		return nil, c.mapError(reqErr)
	}

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, c.mapError(transportError(ctx, err))
	}

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, c.mapError(ClassifyResponse(resp.StatusCode, resp.Header, body))
	}

	stream := &StreamResponse{StatusCode: resp.StatusCode, Header: resp.Header, closer: resp.Body}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		stream.SSE = sse.NewReader(resp.Body)
	} else {
		stream.Body = resp.Body
	}
	return stream, nil
}

// transportError distinguishes deadline expiry from other transport failures.
func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil || isTimeout(err) {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func (c *Adapter) mapError(e *Error) error {
	if c.config.MapError != nil {
		return c.config.MapError(e)
	}
	return e
}

// buildRequest constructs an *http.Request from the adapter config and request.
func (c *Adapter) buildRequest(ctx context.Context, req Request) (*http.Request, *Error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/")
		if req.Path != "" {
			url += "/" + strings.TrimLeft(req.Path, "/")
		}
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewRequestError(fmt.Sprintf("encode body: %v", err))
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, NewRequestError(fmt.Sprintf("create request: %v", err))
	}

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	c.config.Auth.apply(httpReq)

	return httpReq, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "application/json", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/httpclient"
	"github.com/kbukum/llmx/httpclient/sse"
)

const maxNDJSONLine = 1 << 20

// chunkStream turns a streaming HTTP body into StreamChunks.
//
// Payloads that fail to parse are skipped until the first chunk has been
// produced; after that they abort the stream. A body that ends before a
// terminal chunk, an idle gap longer than idle, and cancellation all surface
// as streaming errors. Nothing is retried once the stream is open.
type chunkStream struct {
	provider string
	dialect  Dialect
	resp     *httpclient.StreamResponse
	events   *sse.Reader
	lines    *bufio.Scanner

	idle     time.Duration
	timer    *time.Timer
	timedOut atomic.Bool

	emitted   int
	finished  bool
	closeOnce sync.Once
}

func newChunkStream(name string, d Dialect, resp *httpclient.StreamResponse, idle time.Duration) *chunkStream {
	s := &chunkStream{provider: name, dialect: d, resp: resp, idle: idle}

	switch {
	case resp.SSE != nil:
		s.events = resp.SSE
	case d.StreamFormat() == StreamSSE && resp.Body != nil:
		s.events = sse.NewReader(resp.Body)
	case resp.Body != nil:
		s.lines = bufio.NewScanner(resp.Body)
		s.lines.Buffer(make([]byte, 0, 64*1024), maxNDJSONLine)
	}

	if idle > 0 {
		s.timer = time.AfterFunc(idle, func() {
			s.timedOut.Store(true)
			_ = s.resp.Close()
		})
		s.timer.Stop()
	}
	return s
}

// Next returns the next chunk. It returns (zero, false, nil) after the
// terminal chunk has been delivered.
func (s *chunkStream) Next(ctx context.Context) (StreamChunk, bool, error) {
	if s.finished {
		return StreamChunk{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		s.fail()
		return StreamChunk{}, false, errors.Streaming(s.provider, "stream cancelled", err)
	}

	// Unblock a pending read when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = s.resp.Close() })
	defer stop()

	for {
		event, data, err := s.read()
		if err != nil {
			return StreamChunk{}, false, s.readError(ctx, err)
		}

		chunk, ok, perr := s.dialect.ParseStreamChunk(event, data)
		if perr != nil {
			if appErr, isApp := errors.AsAppError(perr); isApp {
				s.fail()
				return StreamChunk{}, false, appErr
			}
			if s.emitted == 0 {
				continue
			}
			s.fail()
			return StreamChunk{}, false, errors.Streaming(s.provider, "malformed stream payload", perr)
		}
		if !ok {
			continue
		}

		s.emitted++
		if chunk.Done {
			s.finished = true
			_ = s.Close()
		}
		return chunk, true, nil
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *chunkStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		err = s.resp.Close()
	})
	return err
}

func (s *chunkStream) fail() {
	s.finished = true
	_ = s.Close()
}

func (s *chunkStream) read() (string, []byte, error) {
	if s.timer != nil {
		s.timer.Reset(s.idle)
		defer s.timer.Stop()
	}

	if s.events != nil {
		ev, err := s.events.Next()
		if err != nil {
			return "", nil, err
		}
		return ev.Type, []byte(ev.Data), nil
	}
	if s.lines == nil {
		return "", nil, io.EOF
	}
	for s.lines.Scan() {
		line := bytes.TrimSpace(s.lines.Bytes())
		if len(line) == 0 {
			continue
		}
		return "", bytes.Clone(line), nil
	}
	if err := s.lines.Err(); err != nil {
		return "", nil, err
	}
	return "", nil, io.EOF
}

func (s *chunkStream) readError(ctx context.Context, err error) error {
	s.fail()
	switch {
	case s.timedOut.Load():
		return errors.Streaming(s.provider, fmt.Sprintf("no data received for %s", s.idle), err)
	case ctx.Err() != nil:
		return errors.Streaming(s.provider, "stream cancelled", ctx.Err())
	case err == io.EOF:
		return errors.Streaming(s.provider, "stream ended before completion", nil)
	default:
		return errors.Streaming(s.provider, "stream read failed", err)
	}
}

// Pump delivers s on a channel and closes s when done. A failed stream
// delivers one chunk with Err set. Cancelling ctx stops delivery.
func Pump(ctx context.Context, s Stream) <-chan StreamChunk {
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = s.Close() }()
		for {
			chunk, ok, err := s.Next(ctx)
			if err != nil {
				select {
				case ch <- StreamChunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if !ok {
				return
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

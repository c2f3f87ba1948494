// Package sse decodes a text/event-stream response body into events.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLineSize bounds one line. Deltas are small, but a closing usage event
// can be large.
const maxLineSize = 1 << 20

// Event is one dispatched server-sent event. Type is empty for data-only
// events, which is how OpenAI-style APIs send completion deltas.
type Event struct {
	Type string
	Data string
	ID   string
	// Retry is the reconnection delay the server asked for, if any.
	Retry time.Duration
}

// Reader yields events from a stream. An event is dispatched at a blank
// line once it carries data; events without data are dropped.
type Reader struct {
	lines *bufio.Scanner
	body  io.ReadCloser
	first bool
}

// NewReader wraps body, which Close releases.
func NewReader(body io.ReadCloser) *Reader {
	lines := bufio.NewScanner(body)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{lines: lines, body: body, first: true}
}

// Next returns the next event, or io.EOF once the stream is exhausted. A
// final event without its blank line is still delivered.
func (r *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		hasData bool
	)
	for r.lines.Scan() {
		line := strings.TrimSuffix(r.lines.Text(), "\r")
		if r.first {
			line = strings.TrimPrefix(line, "\ufeff")
			r.first = false
		}

		if line == "" {
			if hasData {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			ev = Event{}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
	if err := r.lines.Err(); err != nil {
		return Event{}, err
	}
	if hasData {
		ev.Data = strings.Join(data, "\n")
		return ev, nil
	}
	return Event{}, io.EOF
}

// Close releases the body.
func (r *Reader) Close() error {
	return r.body.Close()
}

// splitField splits "field: value", dropping one leading space from value.
// A line without a colon is a field with an empty value.
func splitField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}

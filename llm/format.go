package llm

import (
	"encoding/json"
	"strings"
)

// PutInt sets m[key] when v is specified.
func PutInt(m map[string]any, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}

// PutFloat sets m[key] when v is specified.
func PutFloat(m map[string]any, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}

// MergeExtra copies provider-specific fields into payload, overriding
// anything already set.
func MergeExtra(payload, extra map[string]any) {
	for k, v := range extra {
		payload[k] = v
	}
}

// ChatMessages converts messages to the role/content wire form.
func ChatMessages(messages []Message) []map[string]string {
	out := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, map[string]string{"role": string(m.Role), "content": m.Content})
	}
	return out
}

// SplitSystem separates system messages from the conversation. Multiple
// system messages are joined with a blank line.
func SplitSystem(messages []Message) (system string, rest []Message) {
	var parts []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}

// TranscriptLabels names each role in a flattened transcript.
type TranscriptLabels map[Role]string

// Transcript flattens messages into newline-joined "Label: content" lines.
func Transcript(messages []Message, labels TranscriptLabels) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, labels[m.Role]+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// ErrorField reads a message out of an error body using the given path of
// object keys, e.g. ("error", "message") or ("message").
func ErrorField(body []byte, path ...string) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	for _, key := range path {
		obj, ok := v.(map[string]any)
		if !ok {
			return ""
		}
		v = obj[key]
	}
	s, _ := v.(string)
	return s
}

// Rechunk splits text into size-rune chunks. The last chunk carries Done
// and finishReason; empty text yields a single empty terminal chunk.
func Rechunk(text string, size int, finishReason string) []StreamChunk {
	if size <= 0 {
		size = DefaultStreamChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return []StreamChunk{{Done: true, FinishReason: finishReason}}
	}

	chunks := make([]StreamChunk, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		chunk := StreamChunk{Content: string(runes[i:end])}
		if end == len(runes) {
			chunk.Done = true
			chunk.FinishReason = finishReason
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

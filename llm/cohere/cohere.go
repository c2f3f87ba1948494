// Package cohere implements the Cohere chat dialect. The conversation is
// flattened into a single labelled transcript and streamed replies arrive as
// newline-delimited JSON.
package cohere

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/llmx/httpclient"
	"github.com/kbukum/llmx/llm"
)

const (
	// ProviderName is the registered name for the Cohere provider.
	ProviderName = "cohere"

	DefaultBaseURL = "https://api.cohere.ai/v1"
	CredentialEnv  = "COHERE_API_KEY"
	DefaultModel   = "command"
)

// SupportedModels lists the models accepted by the Cohere provider.
var SupportedModels = []string{
	"command",
	"command-light",
	"command-nightly",
	"command-r",
	"command-r-plus",
}

var labels = llm.TranscriptLabels{
	llm.RoleSystem:    "System",
	llm.RoleUser:      "User",
	llm.RoleAssistant: "Assistant",
}

// Dialect maps llmx requests onto the Cohere chat endpoint.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

// New creates a Cohere provider.
func New(cfg llm.ProviderConfig) (llm.Provider, error) {
	return llm.New(Dialect{}, cfg)
}

func (Dialect) Name() string { return ProviderName }

func (Dialect) Info() llm.DialectInfo {
	return llm.DialectInfo{
		DefaultBaseURL:     DefaultBaseURL,
		CredentialEnv:      CredentialEnv,
		CredentialRequired: true,
		DefaultModel:       DefaultModel,
		SupportedModels:    SupportedModels,
	}
}

func (Dialect) Auth(apiKey string) *httpclient.AuthConfig { return httpclient.BearerAuth(apiKey) }

func (Dialect) Headers(llm.ProviderConfig) map[string]string { return nil }

func (Dialect) ChatPath(_, _ string) string { return "/chat" }

func (Dialect) StreamFormat() llm.StreamFormat { return llm.StreamNDJSON }

type chatResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type streamLine struct {
	Text         *string `json:"text"`
	IsFinished   bool    `json:"is_finished"`
	FinishReason string  `json:"finish_reason"`
}

// BuildRequest sends the transcript as "message". top_p travels as "p".
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	payload := map[string]any{
		"model":   req.Model,
		"message": llm.Transcript(req.Messages, labels),
	}
	llm.PutInt(payload, "max_tokens", req.MaxTokens)
	llm.PutFloat(payload, "temperature", req.Temperature)
	llm.PutFloat(payload, "p", req.TopP)
	if req.Stream {
		payload["stream"] = true
	}
	llm.MergeExtra(payload, req.Extra)
	return payload, nil
}

// ParseResponse reads the reply text. Cohere does not report token usage,
// so usage is all zeros.
func (Dialect) ParseResponse(body []byte, _ llm.CompletionRequest) (*llm.Response, error) {
	var raw chatResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &llm.Response{
		Choices: []llm.Choice{{Content: raw.Text, FinishReason: raw.FinishReason}},
		Usage:   &llm.Usage{},
	}, nil
}

// ParseStreamChunk handles one NDJSON line. A line with is_finished set is
// terminal even when it carries no text.
func (Dialect) ParseStreamChunk(_ string, data []byte) (llm.StreamChunk, bool, error) {
	var line streamLine
	if err := json.Unmarshal(data, &line); err != nil {
		return llm.StreamChunk{}, false, err
	}
	if line.Text == nil && !line.IsFinished {
		return llm.StreamChunk{}, false, nil
	}

	chunk := llm.StreamChunk{FinishReason: line.FinishReason, Done: line.IsFinished}
	if line.Text != nil {
		chunk.Content = *line.Text
	}
	return chunk, true, nil
}

func (Dialect) ErrorMessage(body []byte) string {
	return llm.ErrorField(body, "message")
}

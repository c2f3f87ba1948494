// Package anthropic implements the Anthropic Messages API dialect, registered
// as the "claude" provider.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/httpclient"
	"github.com/kbukum/llmx/llm"
)

const (
	// ProviderName is the registered name for the Claude provider.
	ProviderName = "claude"

	DefaultBaseURL   = "https://api.anthropic.com/v1"
	CredentialEnv    = "ANTHROPIC_API_KEY"
	DefaultModel     = "claude-3-haiku-20240307"
	APIVersion       = "2023-06-01"
	DefaultMaxTokens = 1024
)

// SupportedModels lists the models accepted by the Claude provider.
var SupportedModels = []string{
	"claude-3-haiku-20240307",
	"claude-3-sonnet-20240229",
	"claude-3-opus-20240229",
	"claude-3-5-sonnet-20241022",
	"claude-2.1",
	"claude-2.0",
	"claude-instant-1.2",
}

// Dialect maps llmx requests onto the Messages API.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

// New creates a Claude provider.
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

func (Dialect) Auth(apiKey string) *httpclient.AuthConfig {
	return httpclient.APIKeyAuth(apiKey, "x-api-key")
}

func (Dialect) Headers(llm.ProviderConfig) map[string]string {
	return map[string]string{"anthropic-version": APIVersion}
}

func (Dialect) ChatPath(_, _ string) string { return "/messages" }

func (Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSSE }

// --- wire types ---

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// BuildRequest lifts system messages into the top-level "system" field.
// max_tokens is mandatory for this API and defaults to DefaultMaxTokens.
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	system, rest := llm.SplitSystem(req.Messages)

	maxTokens := DefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	payload := map[string]any{
		"model":      req.Model,
		"messages":   llm.ChatMessages(rest),
		"max_tokens": maxTokens,
	}
	if system != "" {
		payload["system"] = system
	}
	llm.PutFloat(payload, "temperature", req.Temperature)
	llm.PutFloat(payload, "top_p", req.TopP)
	if req.Stream {
		payload["stream"] = true
	}
	llm.MergeExtra(payload, req.Extra)
	return payload, nil
}

// ParseResponse concatenates the text blocks of the reply into one choice.
func (Dialect) ParseResponse(body []byte, _ llm.CompletionRequest) (*llm.Response, error) {
	var raw messagesResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var sb strings.Builder
	for _, block := range raw.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	resp := &llm.Response{
		Choices: []llm.Choice{{Content: sb.String(), FinishReason: raw.StopReason}},
	}
	if raw.Usage != nil {
		resp.Usage = &llm.Usage{
			PromptTokens:     raw.Usage.InputTokens,
			CompletionTokens: raw.Usage.OutputTokens,
			TotalTokens:      raw.Usage.InputTokens + raw.Usage.OutputTokens,
		}
	}
	return resp, nil
}

// ParseStreamChunk keeps text deltas and the message_stop marker; every
// other event type is skipped.
func (Dialect) ParseStreamChunk(_ string, data []byte) (llm.StreamChunk, bool, error) {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return llm.StreamChunk{}, false, err
	}

	switch ev.Type {
	case "content_block_delta":
		if ev.Delta.Type != "text_delta" {
			return llm.StreamChunk{}, false, nil
		}
		return llm.StreamChunk{Content: ev.Delta.Text}, true, nil
	case "message_stop":
		return llm.StreamChunk{Done: true, FinishReason: "stop"}, true, nil
	case "error":
		msg := "stream error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return llm.StreamChunk{}, false, errors.Streaming(ProviderName, msg, nil)
	default:
		return llm.StreamChunk{}, false, nil
	}
}

func (Dialect) ErrorMessage(body []byte) string {
	return llm.ErrorField(body, "error", "message")
}

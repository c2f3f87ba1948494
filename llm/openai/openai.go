// Package openai implements the OpenAI chat completions dialect. The same
// wire format is spoken by several compatible services; Compatible builds a
// dialect for one of them.
package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/httpclient"
	"github.com/kbukum/llmx/llm"
)

const (
	// ProviderName is the registered name for the OpenAI provider.
	ProviderName = "openai"

	DefaultBaseURL = "https://api.openai.com/v1"
	CredentialEnv  = "OPENAI_API_KEY"
	DefaultModel   = "gpt-3.5-turbo"

	doneSentinel = "[DONE]"
)

// SupportedModels lists the models accepted by the OpenAI provider.
var SupportedModels = []string{
	"gpt-3.5-turbo",
	"gpt-3.5-turbo-16k",
	"gpt-4",
	"gpt-4-32k",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
}

// Dialect maps llmx requests onto the chat completions API.
type Dialect struct {
	name string
	info llm.DialectInfo
}

var _ llm.Dialect = (*Dialect)(nil)

// NewDialect returns the OpenAI dialect.
func NewDialect() *Dialect {
	return Compatible(ProviderName, llm.DialectInfo{
		DefaultBaseURL:     DefaultBaseURL,
		CredentialEnv:      CredentialEnv,
		CredentialRequired: true,
		DefaultModel:       DefaultModel,
		SupportedModels:    SupportedModels,
	})
}

// Compatible returns a dialect for a service that speaks the chat
// completions protocol under another name.
func Compatible(name string, info llm.DialectInfo) *Dialect {
	return &Dialect{name: name, info: info}
}

// New creates an OpenAI provider.
func New(cfg llm.ProviderConfig) (llm.Provider, error) {
	return llm.New(NewDialect(), cfg)
}

func (d *Dialect) Name() string { return d.name }

func (d *Dialect) Info() llm.DialectInfo { return d.info }

func (d *Dialect) Auth(apiKey string) *httpclient.AuthConfig {
	return httpclient.BearerAuth(apiKey)
}

func (d *Dialect) Headers(cfg llm.ProviderConfig) map[string]string {
	if cfg.Organization == "" {
		return nil
	}
	return map[string]string{"OpenAI-Organization": cfg.Organization}
}

func (d *Dialect) ChatPath(_, _ string) string { return "/chat/completions" }

func (d *Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSSE }

// --- wire types ---

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// BuildRequest encodes the chat completions payload. Unset sampling
// parameters are omitted.
func (d *Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	payload := map[string]any{
		"model":    req.Model,
		"messages": llm.ChatMessages(req.Messages),
	}
	llm.PutInt(payload, "max_tokens", req.MaxTokens)
	llm.PutFloat(payload, "temperature", req.Temperature)
	llm.PutFloat(payload, "top_p", req.TopP)
	if req.Stream {
		payload["stream"] = true
	}
	llm.MergeExtra(payload, req.Extra)
	return payload, nil
}

func (d *Dialect) ParseResponse(body []byte, _ llm.CompletionRequest) (*llm.Response, error) {
	var raw chatResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}

	resp := &llm.Response{Choices: make([]llm.Choice, 0, len(raw.Choices))}
	for _, c := range raw.Choices {
		choice := llm.Choice{Content: c.Message.Content}
		if c.FinishReason != nil {
			choice.FinishReason = *c.FinishReason
		}
		resp.Choices = append(resp.Choices, choice)
	}
	if raw.Usage != nil {
		resp.Usage = &llm.Usage{
			PromptTokens:     raw.Usage.PromptTokens,
			CompletionTokens: raw.Usage.CompletionTokens,
			TotalTokens:      raw.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// ParseStreamChunk decodes one "data:" event. The chunk carrying a
// finish_reason is terminal; a bare [DONE] sentinel also ends the stream.
func (d *Dialect) ParseStreamChunk(_ string, data []byte) (llm.StreamChunk, bool, error) {
	payload := strings.TrimSpace(string(data))
	if payload == "" {
		return llm.StreamChunk{}, false, nil
	}
	if payload == doneSentinel {
		return llm.StreamChunk{Done: true}, true, nil
	}

	var chunk chatChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return llm.StreamChunk{}, false, err
	}
	if chunk.Error != nil {
		return llm.StreamChunk{}, false, errors.Streaming(d.name, chunk.Error.Message, nil)
	}
	if len(chunk.Choices) == 0 {
		return llm.StreamChunk{}, false, nil
	}

	c := chunk.Choices[0]
	out := llm.StreamChunk{Content: c.Delta.Content}
	if c.FinishReason != nil {
		out.FinishReason = *c.FinishReason
		out.Done = true
	}
	return out, true, nil
}

func (d *Dialect) ErrorMessage(body []byte) string {
	return llm.ErrorField(body, "error", "message")
}

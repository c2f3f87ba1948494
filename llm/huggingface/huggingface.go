// Package huggingface implements the Hugging Face Inference API dialect.
// The API has no chat schema or native streaming: conversations are sent as
// a text transcript and streamed calls replay the full answer in slices.
package huggingface

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/httpclient"
	"github.com/kbukum/llmx/llm"
)

const (
	// ProviderName is the registered name for the Hugging Face provider.
	ProviderName = "huggingface"

	DefaultBaseURL = "https://api-inference.huggingface.co/models"
	CredentialEnv  = "HUGGINGFACE_API_TOKEN"
	DefaultModel   = "microsoft/DialoGPT-medium"

	assistantPrompt = "Assistant:"
)

// SupportedModels lists well-known hosted models. Any other model id is
// accepted as well.
var SupportedModels = []string{
	"microsoft/DialoGPT-medium",
	"microsoft/DialoGPT-large",
	"facebook/blenderbot-400M-distill",
	"facebook/blenderbot-1B-distill",
	"mistralai/Mistral-7B-Instruct-v0.1",
	"mistralai/Mixtral-8x7B-Instruct-v0.1",
	"meta-llama/Llama-2-7b-chat-hf",
	"meta-llama/Llama-2-13b-chat-hf",
	"codellama/CodeLlama-7b-Instruct-hf",
}

var labels = llm.TranscriptLabels{
	llm.RoleSystem:    "System",
	llm.RoleUser:      "Human",
	llm.RoleAssistant: "Assistant",
}

// Dialect maps llmx requests onto the text-generation inference endpoint.
type Dialect struct{}

var (
	_ llm.Dialect          = Dialect{}
	_ llm.StatusTranslator = Dialect{}
)

// New creates a Hugging Face provider. The token is optional; public models
// can be queried anonymously.
func New(cfg llm.ProviderConfig) (llm.Provider, error) {
	return llm.New(Dialect{}, cfg)
}

func (Dialect) Name() string { return ProviderName }

func (Dialect) Info() llm.DialectInfo {
	return llm.DialectInfo{
		DefaultBaseURL:  DefaultBaseURL,
		CredentialEnv:   CredentialEnv,
		DefaultModel:    DefaultModel,
		SupportedModels: SupportedModels,
		AcceptAnyModel:  true,
	}
}

func (Dialect) Auth(token string) *httpclient.AuthConfig { return httpclient.BearerAuth(token) }

func (Dialect) Headers(llm.ProviderConfig) map[string]string { return nil }

// ChatPath appends the model id unless the configured base URL already
// points at a model endpoint.
func (Dialect) ChatPath(baseURL, model string) string {
	if strings.HasSuffix(strings.TrimRight(baseURL, "/"), model) {
		return ""
	}
	return "/" + model
}

func (Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSimulated }

// Prompt renders messages as the transcript sent in "inputs". It always
// ends with an open assistant turn.
func Prompt(messages []llm.Message) string {
	text := llm.Transcript(messages, labels)
	if len(messages) == 0 || messages[len(messages)-1].Role != llm.RoleAssistant {
		if text != "" {
			text += "\n"
		}
		text += assistantPrompt
	}
	return text
}

// BuildRequest places sampling options and extra fields under "parameters".
func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	params := map[string]any{}
	llm.PutInt(params, "max_new_tokens", req.MaxTokens)
	llm.PutFloat(params, "temperature", req.Temperature)
	llm.PutFloat(params, "top_p", req.TopP)
	llm.MergeExtra(params, req.Extra)
	return map[string]any{
		"inputs":     Prompt(req.Messages),
		"parameters": params,
	}, nil
}

// ParseResponse accepts the list and object shapes returned by different
// model pipelines. The echoed prompt is stripped from generated_text. Token
// usage is estimated from whitespace-separated word counts.
func (Dialect) ParseResponse(body []byte, req llm.CompletionRequest) (*llm.Response, error) {
	input := Prompt(req.Messages)
	content := extractText(body, input)

	prompt := len(strings.Fields(input))
	completion := len(strings.Fields(content))
	return &llm.Response{
		Choices: []llm.Choice{{Content: content, FinishReason: "stop"}},
		Usage: &llm.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

func extractText(body []byte, input string) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body)
	}

	switch v := data.(type) {
	case []any:
		if len(v) == 0 {
			return string(body)
		}
		if obj, ok := v[0].(map[string]any); ok {
			if generated, ok := obj["generated_text"].(string); ok {
				if rest, found := strings.CutPrefix(generated, input); found {
					return strings.TrimSpace(rest)
				}
				return generated
			}
		}
		return rawJSON(v[0])
	case map[string]any:
		if generated, ok := v["generated_text"].(string); ok {
			return generated
		}
		return string(body)
	case string:
		return v
	default:
		return string(body)
	}
}

func rawJSON(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseStreamChunk is never called; streaming is simulated.
func (Dialect) ParseStreamChunk(string, []byte) (llm.StreamChunk, bool, error) {
	return llm.StreamChunk{}, false, nil
}

func (Dialect) ErrorMessage(body []byte) string {
	return llm.ErrorField(body, "error")
}

// TranslateStatus reports a rejected token and a model that is still loading.
func (Dialect) TranslateStatus(e *httpclient.Error) error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return errors.Authentication(ProviderName, "Invalid HuggingFace token")
	case http.StatusServiceUnavailable:
		return errors.WarmingUp(ProviderName)
	}
	return nil
}

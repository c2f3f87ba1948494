package llm

import (
	"fmt"
	"time"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/resilience"
	"github.com/kbukum/llmx/validation"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message represents a single chat message.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// NewMessage builds a Message, rejecting unknown roles.
func NewMessage(role, content string) (Message, error) {
	m := Message{Role: Role(role), Content: content}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Validate checks the role.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return errors.Validationf("invalid role %q: must be one of system, user, assistant", m.Role)
	}
	return nil
}

// GenerationConfig carries the per-call generation parameters. Nil pointers
// mean "not specified" and are omitted from provider payloads.
type GenerationConfig struct {
	// Model overrides the provider's default model.
	Model       string   `json:"model,omitempty" mapstructure:"model"`
	MaxTokens   *int     `json:"max_tokens,omitempty" mapstructure:"max_tokens" validate:"omitempty,gt=0"`
	Temperature *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	TopP        *float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	Stream      bool     `json:"stream" mapstructure:"stream"`
	UseCache    bool     `json:"use_cache" mapstructure:"use_cache"`
}

// DefaultGenerationConfig returns a config with caching enabled.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{UseCache: true}
}

// Validate checks parameter ranges.
func (c GenerationConfig) Validate() error {
	return validation.Validate(c)
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// DefaultStreamChunkSize is the number of runes per chunk when a provider
// without native streaming replays a complete answer.
const DefaultStreamChunkSize = 10

const defaultTimeout = 30 * time.Second

// ProviderConfig configures one provider adapter instance.
type ProviderConfig struct {
	// APIKey overrides the provider's credential environment variable.
	APIKey string `yaml:"api_key" mapstructure:"api_key" json:"-"`
	// APIBase overrides the provider's default base URL.
	APIBase      string `yaml:"api_base" mapstructure:"api_base" validate:"omitempty,url"`
	Organization string `yaml:"organization" mapstructure:"organization"`
	// Timeout bounds each blocking request and each idle gap in a stream.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// MaxRetries bounds retries after the first attempt. The total number of
	// attempts never exceeds three.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// StreamChunkSize is the rune count per replayed chunk for providers
	// without native streaming.
	StreamChunkSize int `yaml:"stream_chunk_size" mapstructure:"stream_chunk_size" validate:"gte=0"`
	// RateLimit caps outgoing requests per second. Zero disables pacing.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst" validate:"gte=0"`

	// Retry replaces the default backoff policy. Tests use it to shorten waits.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-" json:"-"`
}

// DefaultProviderConfig returns the defaults used when no config is given.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout:         defaultTimeout,
		MaxRetries:      3,
		StreamChunkSize: DefaultStreamChunkSize,
	}
}

// ApplyDefaults fills in zero-value fields that have no meaningful zero.
func (c *ProviderConfig) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.StreamChunkSize <= 0 {
		c.StreamChunkSize = DefaultStreamChunkSize
	}
}

// Validate checks the configuration.
func (c ProviderConfig) Validate() error {
	return validation.Validate(c)
}

// retryConfig derives the retry policy: at most three attempts, 4s backoff
// growing to a 10s cap.
func (c ProviderConfig) retryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	if c.Retry != nil {
		cfg = *c.Retry
	}
	if attempts := c.MaxRetries + 1; attempts < cfg.MaxAttempts {
		cfg.MaxAttempts = attempts
	}
	if cfg.MaxAttempts > 3 {
		cfg.MaxAttempts = 3
	}
	return cfg
}

// Choice is one generated completion.
type Choice struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Usage reports token consumption. Providers without usage statistics
// report zeros or word-count estimates.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the canonical result of a blocking generation.
type Response struct {
	Choices  []Choice `json:"choices"`
	Usage    *Usage   `json:"usage,omitempty"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	// Cached is set by the dispatcher on cache hits, never by an adapter.
	Cached bool `json:"cached"`
}

// Text returns the content of the first choice.
func (r *Response) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Content
}

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Choices = append([]Choice(nil), r.Choices...)
	if r.Usage != nil {
		u := *r.Usage
		out.Usage = &u
	}
	return &out
}

// StreamChunk is a single piece of a streamed response. Exactly one chunk
// per successful stream has Done set, and it is the last one.
type StreamChunk struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Done         bool   `json:"done"`
	// Err is set on channel-delivered chunks when the stream failed.
	Err error `json:"-"`
}

// CompletionRequest is the provider-agnostic input a Dialect encodes.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	Stream      bool
	// Extra holds provider-specific fields merged into the payload.
	Extra map[string]any
}

// NormalizeMessages coerces typed and plain key/value messages into Messages.
// Any unrecognized shape fails the whole batch.
func NormalizeMessages(in []any) ([]Message, error) {
	out := make([]Message, 0, len(in))
	for i, raw := range in {
		m, err := normalizeMessage(raw)
		if err != nil {
			return nil, errors.Validationf("message %d: %s", i, errorMessage(err))
		}
		out = append(out, m)
	}
	return out, nil
}

func normalizeMessage(raw any) (Message, error) {
	switch v := raw.(type) {
	case Message:
		return v, v.Validate()
	case *Message:
		if v == nil {
			return Message{}, fmt.Errorf("nil message")
		}
		return *v, v.Validate()
	case map[string]string:
		role, hasRole := v["role"]
		content, hasContent := v["content"]
		if !hasRole || !hasContent {
			return Message{}, fmt.Errorf("message requires role and content")
		}
		return NewMessage(role, content)
	case map[string]any:
		role, ok := v["role"].(string)
		if !ok {
			return Message{}, fmt.Errorf("role must be a string")
		}
		content, ok := v["content"].(string)
		if !ok {
			return Message{}, fmt.Errorf("content must be a string")
		}
		return NewMessage(role, content)
	default:
		return Message{}, fmt.Errorf("invalid message type: %T", raw)
	}
}

func errorMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

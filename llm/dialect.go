package llm

import "github.com/kbukum/llmx/httpclient"

// StreamFormat indicates how a provider delivers streaming responses.
type StreamFormat int

const (
	// StreamSSE uses Server-Sent Events. Used by OpenAI-style and Claude-style APIs.
	StreamSSE StreamFormat = iota
	// StreamNDJSON uses newline-delimited JSON. Used by Cohere-style APIs.
	StreamNDJSON
	// StreamSimulated means the provider has no incremental delivery; the
	// adapter generates the full answer and replays it in fixed-size slices.
	StreamSimulated
)

// String returns the format name.
func (f StreamFormat) String() string {
	switch f {
	case StreamSSE:
		return "sse"
	case StreamNDJSON:
		return "ndjson"
	case StreamSimulated:
		return "simulated"
	default:
		return "unknown"
	}
}

// DialectInfo is the static description of a backend.
type DialectInfo struct {
	DefaultBaseURL string
	// CredentialEnv names the environment variable consulted when the
	// config carries no API key.
	CredentialEnv string
	// CredentialRequired is false for backends that allow anonymous access.
	CredentialRequired bool
	DefaultModel       string
	// SupportedModels lists the known models. It is nil when the backend
	// publishes no list.
	SupportedModels []string
	// AcceptAnyModel skips model validation for backends that serve
	// arbitrary hosted models.
	AcceptAnyModel bool
}

// Dialect maps canonical llm types to and from one backend's HTTP format.
// Implementations live in the provider sub-packages (openai, anthropic,
// cohere, huggingface) and must be safe for concurrent use.
type Dialect interface {
	// Name returns the canonical provider name (e.g., "openai", "claude").
	Name() string

	// Info returns the backend's static description.
	Info() DialectInfo

	// Auth returns the authentication applied to every request. apiKey may
	// be empty for backends whose credential is optional.
	Auth(apiKey string) *httpclient.AuthConfig

	// Headers returns extra headers the backend requires.
	Headers(cfg ProviderConfig) map[string]string

	// ChatPath returns the endpoint path, relative to baseURL, for model.
	ChatPath(baseURL, model string) string

	// BuildRequest maps a CompletionRequest to the backend's JSON body.
	BuildRequest(req CompletionRequest) (any, error)

	// ParseResponse maps the backend's JSON body to a Response. Provider and
	// Model are filled in by the adapter.
	ParseResponse(body []byte, req CompletionRequest) (*Response, error)

	// StreamFormat returns how this backend delivers streaming data.
	StreamFormat() StreamFormat

	// ParseStreamChunk parses one stream payload. event is the SSE event
	// name, empty for NDJSON. ok is false for payloads that carry nothing
	// for the caller. Returning an *errors.AppError aborts the stream.
	ParseStreamChunk(event string, data []byte) (chunk StreamChunk, ok bool, err error)

	// ErrorMessage extracts the backend's own error text from a non-2xx
	// body, or returns "" when it cannot be parsed.
	ErrorMessage(body []byte) string
}

// StatusTranslator is optionally implemented by dialects that give specific
// HTTP statuses a meaning of their own. Returning nil falls back to the
// default translation.
type StatusTranslator interface {
	TranslateStatus(e *httpclient.Error) error
}

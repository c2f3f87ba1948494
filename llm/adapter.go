package llm

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/httpclient"
	"github.com/kbukum/llmx/logger"
	"github.com/kbukum/llmx/provider"
	"github.com/kbukum/llmx/resilience"
)

// Adapter is a config-driven LLM client that works with any backend via the
// Dialect pattern. It owns one HTTP transport for its lifetime and is safe
// for concurrent use.
type Adapter struct {
	dialect Dialect
	cfg     ProviderConfig
	apiKey  string
	baseURL string
	http    *httpclient.Adapter
	log     *logger.Logger
}

var _ Provider = (*Adapter)(nil)

// New creates an adapter for dialect. It fails with an authentication error
// when the dialect requires a credential and none is configured.
func New(dialect Dialect, cfg ProviderConfig) (*Adapter, error) {
	if dialect == nil {
		return nil, errors.Configuration("llm: dialect is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	info := dialect.Info()
	a := &Adapter{
		dialect: dialect,
		cfg:     cfg,
		baseURL: info.DefaultBaseURL,
		log:     logger.WithComponent("llm." + dialect.Name()),
	}
	if cfg.APIBase != "" {
		a.baseURL = cfg.APIBase
	}
	if err := a.ValidateConfig(); err != nil {
		return nil, err
	}

	headers := dialect.Headers(cfg)
	for k, v := range cfg.Headers {
		if headers == nil {
			headers = make(map[string]string)
		}
		headers[k] = v
	}

	retry := cfg.retryConfig()
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		a.log.Warn("retrying provider call", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff", backoff.String(),
		))
	}

	var rl *resilience.RateLimiterConfig
	if cfg.RateLimit > 0 {
		rl = &resilience.RateLimiterConfig{Name: dialect.Name(), Rate: cfg.RateLimit, Burst: cfg.RateBurst}
	}

	client, err := httpclient.New(httpclient.Config{
		Name:        dialect.Name(),
		BaseURL:     a.baseURL,
		Timeout:     cfg.Timeout,
		Auth:        dialect.Auth(a.apiKey),
		Headers:     headers,
		Retry:       &retry,
		RateLimiter: rl,
		MapError:    a.translate,
	})
	if err != nil {
		return nil, errors.Configuration(fmt.Sprintf("llm: create http client: %v", err))
	}
	a.http = client
	return a, nil
}

// --- provider.Provider ---

// Name returns the canonical provider name.
func (a *Adapter) Name() string { return a.dialect.Name() }

// Close releases pooled connections.
func (a *Adapter) Close(ctx context.Context) error {
	if a.http == nil {
		return nil
	}
	return a.http.Close(ctx)
}

// DefaultModel returns the model used when the call names none.
func (a *Adapter) DefaultModel() string { return a.dialect.Info().DefaultModel }

// SupportedModels returns the known model list.
func (a *Adapter) SupportedModels() []string {
	return slices.Clone(a.dialect.Info().SupportedModels)
}

// ValidateConfig resolves the credential from config, then from the
// dialect's environment variable.
func (a *Adapter) ValidateConfig() error {
	info := a.dialect.Info()
	key := a.cfg.APIKey
	if key == "" && info.CredentialEnv != "" {
		key = os.Getenv(info.CredentialEnv)
	}
	if key == "" && info.CredentialRequired {
		return errors.MissingCredential(a.dialect.Name(), info.CredentialEnv)
	}
	a.apiKey = key
	return nil
}

// Dialect returns the dialect used by this adapter.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// Config returns the adapter's configuration.
func (a *Adapter) Config() ProviderConfig { return a.cfg }

// BaseURL returns the resolved base URL.
func (a *Adapter) BaseURL() string { return a.baseURL }

// --- generation ---

// Generate sends one blocking request and parses the answer.
func (a *Adapter) Generate(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) (*Response, error) {
	req, err := a.prepare(messages, cfg, extra, false)
	if err != nil {
		return nil, err
	}
	return a.execute(ctx, req)
}

// AsyncGenerate runs Generate on its own goroutine.
func (a *Adapter) AsyncGenerate(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) *Future[*Response] {
	return Go(ctx, func(ctx context.Context) (*Response, error) {
		return a.Generate(ctx, messages, cfg, extra)
	})
}

// GenerateStream opens a stream. Dialects without native streaming produce
// the full answer first and replay it in StreamChunkSize slices.
func (a *Adapter) GenerateStream(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) (Stream, error) {
	if a.dialect.StreamFormat() == StreamSimulated {
		resp, err := a.Generate(ctx, messages, cfg, extra)
		if err != nil {
			return nil, err
		}
		finish := "stop"
		if len(resp.Choices) > 0 && resp.Choices[0].FinishReason != "" {
			finish = resp.Choices[0].FinishReason
		}
		return provider.NewSliceIterator(Rechunk(resp.Text(), a.cfg.StreamChunkSize, finish)), nil
	}

	req, err := a.prepare(messages, cfg, extra, true)
	if err != nil {
		return nil, err
	}
	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return nil, errors.Validationf("%s: build request: %v", a.Name(), err)
	}

	sr, err := a.http.DoStream(ctx, httpclient.Request{
		Path: a.dialect.ChatPath(a.baseURL, req.Model),
		Body: body,
	})
	if err != nil {
		return nil, err
	}
	return newChunkStream(a.Name(), a.dialect, sr, a.cfg.Timeout), nil
}

// AsyncGenerateStream opens the stream and pumps it onto a channel.
func (a *Adapter) AsyncGenerateStream(ctx context.Context, messages []Message, cfg GenerationConfig, extra map[string]any) (<-chan StreamChunk, error) {
	s, err := a.GenerateStream(ctx, messages, cfg, extra)
	if err != nil {
		return nil, err
	}
	return Pump(ctx, s), nil
}

// --- internal ---

func (a *Adapter) prepare(messages []Message, cfg GenerationConfig, extra map[string]any, stream bool) (CompletionRequest, error) {
	if err := cfg.Validate(); err != nil {
		return CompletionRequest{}, err
	}
	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return CompletionRequest{}, errors.Validationf("message %d: %s", i, errorMessage(err))
		}
	}

	model := cfg.Model
	if model == "" {
		model = a.DefaultModel()
	}
	info := a.dialect.Info()
	if supported := info.SupportedModels; !info.AcceptAnyModel && supported != nil && !slices.Contains(supported, model) {
		return CompletionRequest{}, errors.Configuration(fmt.Sprintf(
			"Model '%s' not supported by %s. Supported models: %s",
			model, a.Name(), strings.Join(supported, ", "),
		))
	}

	return CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		Stream:      stream,
		Extra:       extra,
	}, nil
}

func (a *Adapter) execute(ctx context.Context, req CompletionRequest) (*Response, error) {
	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return nil, errors.Validationf("%s: build request: %v", a.Name(), err)
	}

	resp, err := a.http.Do(ctx, httpclient.Request{
		Path: a.dialect.ChatPath(a.baseURL, req.Model),
		Body: body,
	})
	if err != nil {
		return nil, err
	}

	out, err := a.dialect.ParseResponse(resp.Body, req)
	if err != nil {
		return nil, errors.Provider(a.Name(), resp.StatusCode, fmt.Sprintf("malformed response: %v", err)).WithCause(err)
	}
	out.Provider = a.Name()
	out.Model = req.Model
	out.Cached = false
	return out, nil
}

// translate maps transport errors to the llmx taxonomy before the retry
// policy inspects them.
func (a *Adapter) translate(e *httpclient.Error) error {
	name := a.Name()
	if st, ok := a.dialect.(StatusTranslator); ok {
		if err := st.TranslateStatus(e); err != nil {
			return err
		}
	}

	switch e.Code {
	case httpclient.ErrCodeAuth:
		return errors.Authentication(name, "")
	case httpclient.ErrCodeRateLimit:
		return errors.RateLimited(name, e.RetryAfter)
	case httpclient.ErrCodeTimeout, httpclient.ErrCodeConnection:
		return errors.Provider(name, 0, e.Message).WithCause(e)
	case httpclient.ErrCodeRequest:
		return errors.Internal(e).WithProvider(name)
	default:
		msg := a.dialect.ErrorMessage(e.Body)
		if msg == "" {
			msg = e.Message
		}
		return errors.Provider(name, e.StatusCode, msg)
	}
}

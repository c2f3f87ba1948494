// Package generator is the single entry point for text generation. A
// Generator normalizes the conversation, consults the response cache, calls
// the primary provider and walks the fallback list when that call fails,
// for both blocking and streaming generation.
package generator

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/kbukum/llmx/cache"
	"github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/llm/providers"
	"github.com/kbukum/llmx/logger"
	"github.com/kbukum/llmx/observability"
	"github.com/kbukum/llmx/provider"
)

// Option configures a Generator.
type Option func(*Generator)

// WithRegistry resolves providers from r instead of the shared registry.
func WithRegistry(r *providers.Registry) Option {
	return func(g *Generator) { g.registry = r }
}

// WithCache uses an existing cache manager. The Generator does not close it.
func WithCache(m *cache.Manager) Option {
	return func(g *Generator) { g.cache = m }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(g *Generator) { g.log = log }
}

// WithMetrics records cache, token, fallback and call metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// Generator is safe for concurrent use.
type Generator struct {
	cfg       Config
	registry  *providers.Registry
	cache     *cache.Manager
	ownsCache bool
	instances *provider.Instances[llm.Provider]
	primary   string
	log       *logger.Logger
	metrics   *observability.Metrics
}

// New resolves and constructs the primary provider and the cache. It fails
// with a configuration error for an unknown provider, an authentication
// error for a missing credential, and a cache error when the configured
// Redis server is unreachable.
func New(ctx context.Context, cfg Config, opts ...Option) (*Generator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{
		cfg:       cfg,
		instances: provider.NewInstances[llm.Provider](),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = providers.Default()
	}
	if g.log == nil {
		g.log = logger.WithComponent("generator")
	}

	primary, err := g.registry.Resolve(cfg.Provider)
	if err != nil {
		return nil, err
	}
	g.primary = primary
	for _, name := range cfg.Fallbacks {
		if _, err := g.registry.Resolve(name); err != nil {
			return nil, err
		}
	}

	if _, err := g.provider(primary); err != nil {
		return nil, err
	}

	if g.cache == nil {
		m, err := cache.New(ctx, cfg.Cache, cache.WithLogger(g.log.WithComponent("cache")))
		if err != nil {
			_ = g.instances.CloseAll(ctx)
			return nil, err
		}
		g.cache = m
		g.ownsCache = true
	}
	return g, nil
}

// Provider returns the canonical name of the primary provider.
func (g *Generator) Provider() string { return g.primary }

// Fallbacks returns the configured fallback names.
func (g *Generator) Fallbacks() []string { return append([]string(nil), g.cfg.Fallbacks...) }

// DefaultModel returns the model used when a call names none.
func (g *Generator) DefaultModel() string {
	if g.cfg.Model != "" {
		return g.cfg.Model
	}
	p, ok := g.instances.Get(g.primary)
	if !ok {
		return ""
	}
	return p.DefaultModel()
}

// ListProviders returns every registered provider name and alias.
func (g *Generator) ListProviders() []string { return g.registry.Names() }

// Cache returns the response cache.
func (g *Generator) Cache() *cache.Manager { return g.cache }

// ClearCache drops every cached response under this generator's prefix.
func (g *Generator) ClearCache(ctx context.Context) { g.cache.Clear(ctx) }

// Close releases provider transports and, if the Generator created it, the
// cache.
func (g *Generator) Close(ctx context.Context) error {
	var errs []error
	errs = append(errs, g.instances.CloseAll(ctx))
	if g.ownsCache {
		errs = append(errs, g.cache.Close())
	}
	return stderrors.Join(errs...)
}

// Generate produces a complete response. messages may mix llm.Message
// values and role/content maps. Responses are cached when cfg.UseCache is
// set and cfg.Stream is not; a hit is returned with Cached set and no
// upstream call.
func (g *Generator) Generate(ctx context.Context, messages []any, cfg llm.GenerationConfig, extra map[string]any) (*llm.Response, error) {
	msgs, err := g.prepare(messages, cfg)
	if err != nil {
		return nil, err
	}
	ctx = withRequestID(ctx)

	ctx, op := observability.StartOperation(ctx, observability.SpanGenerate, g.operation(ctx, "generate"), g.metrics)
	resp, err := g.generate(ctx, msgs, cfg, extra)
	if resp != nil {
		observability.SetSpanAttribute(ctx, observability.AttrCached, resp.Cached)
		observability.SetSpanAttribute(ctx, observability.AttrModel, resp.Model)
	}
	op.End(ctx, err)
	return resp, err
}

// AsyncGenerate runs Generate on its own goroutine.
func (g *Generator) AsyncGenerate(ctx context.Context, messages []any, cfg llm.GenerationConfig, extra map[string]any) *llm.Future[*llm.Response] {
	return llm.Go(ctx, func(ctx context.Context) (*llm.Response, error) {
		return g.Generate(ctx, messages, cfg, extra)
	})
}

// GenerateStream opens a stream on the primary provider, or on the first
// fallback that opens successfully. Streams are never cached and a stream
// that has started is never switched to another provider.
func (g *Generator) GenerateStream(ctx context.Context, messages []any, cfg llm.GenerationConfig, extra map[string]any) (llm.Stream, error) {
	msgs, err := g.prepare(messages, cfg)
	if err != nil {
		return nil, err
	}
	ctx = withRequestID(ctx)

	ctx, op := observability.StartOperation(ctx, observability.SpanGenerateStream, g.operation(ctx, "generate_stream"), g.metrics)
	s, err := g.openStream(ctx, msgs, cfg, extra)
	op.End(ctx, err)
	return s, err
}

// AsyncGenerateStream opens a stream like GenerateStream and delivers its
// chunks on a channel. A mid-stream failure arrives as a chunk with Err set.
func (g *Generator) AsyncGenerateStream(ctx context.Context, messages []any, cfg llm.GenerationConfig, extra map[string]any) (<-chan llm.StreamChunk, error) {
	s, err := g.GenerateStream(ctx, messages, cfg, extra)
	if err != nil {
		return nil, err
	}
	return llm.Pump(ctx, s), nil
}

// --- core ---

func (g *Generator) prepare(messages []any, cfg llm.GenerationConfig) ([]llm.Message, error) {
	msgs, err := llm.NormalizeMessages(messages)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (g *Generator) generate(ctx context.Context, msgs []llm.Message, cfg llm.GenerationConfig, extra map[string]any) (*llm.Response, error) {
	primaryCfg := cfg
	if primaryCfg.Model == "" {
		primaryCfg.Model = g.DefaultModel()
	}

	useCache := cfg.UseCache && !cfg.Stream && g.cache.Enabled()
	var key string
	if useCache {
		key = g.cache.Key(msgs, primaryCfg, g.primary)
		cached, hit := g.cache.Get(ctx, key)
		if g.metrics != nil {
			g.metrics.RecordCacheLookup(ctx, g.primary, hit)
		}
		if hit {
			cached.Cached = true
			g.log.WithContext(ctx).Debug("cache hit", logger.Fields(
				logger.FieldProvider, g.primary, logger.FieldModel, primaryCfg.Model, logger.FieldCacheKey, key,
			))
			return cached, nil
		}
	}

	p, err := g.provider(g.primary)
	if err != nil {
		return nil, err
	}
	resp, err := g.blocking(p).Execute(ctx, call{messages: msgs, cfg: primaryCfg, extra: extra})
	if err == nil {
		if useCache {
			g.cache.Set(ctx, key, resp)
		}
		g.recordTokens(ctx, resp)
		return resp, nil
	}
	if len(g.cfg.Fallbacks) == 0 {
		return nil, err
	}

	g.logFailure(ctx, g.primary, err)
	// Config.Model belongs to the primary. A fallback gets the model named
	// by the call, else its own default.
	resp, err = provider.Fallback(ctx, g.cfg.Fallbacks,
		func(ctx context.Context, name string) (*llm.Response, error) {
			g.recordFallback(ctx, name)
			fb, err := g.fallbackProvider(name)
			if err != nil {
				return nil, err
			}
			defer func() { _ = fb.Close(ctx) }()
			return g.blocking(fb).Execute(ctx, call{messages: msgs, cfg: cfg, extra: extra})
		},
		func(name string, err error) { g.logFailure(ctx, name, err) },
	)
	if err != nil {
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrFallback, resp.Provider)
	g.recordTokens(ctx, resp)
	return resp, nil
}

func (g *Generator) openStream(ctx context.Context, msgs []llm.Message, cfg llm.GenerationConfig, extra map[string]any) (llm.Stream, error) {
	primaryCfg := cfg
	if primaryCfg.Model == "" {
		primaryCfg.Model = g.DefaultModel()
	}

	p, err := g.provider(g.primary)
	if err != nil {
		return nil, err
	}
	s, err := g.streaming(p).Execute(ctx, call{messages: msgs, cfg: primaryCfg, extra: extra})
	if err == nil {
		return s, nil
	}
	if len(g.cfg.Fallbacks) == 0 {
		return nil, err
	}

	g.logFailure(ctx, g.primary, err)
	// As above, cfg carries only the call's own model.
	return provider.Fallback(ctx, g.cfg.Fallbacks,
		func(ctx context.Context, name string) (llm.Stream, error) {
			g.recordFallback(ctx, name)
			fb, err := g.fallbackProvider(name)
			if err != nil {
				return nil, err
			}
			s, err := g.streaming(fb).Execute(ctx, call{messages: msgs, cfg: cfg, extra: extra})
			if err != nil {
				_ = fb.Close(ctx)
				return nil, err
			}
			return &ownedStream{Stream: s, owner: fb}, nil
		},
		func(name string, err error) { g.logFailure(ctx, name, err) },
	)
}

func (g *Generator) provider(name string) (llm.Provider, error) {
	return g.instances.GetOrCreate(name, func() (llm.Provider, error) {
		return g.registry.Create(name, g.cfg.ProviderConfig)
	})
}

// fallbackProvider builds a fresh instance; the caller closes it.
func (g *Generator) fallbackProvider(name string) (llm.Provider, error) {
	canonical, err := g.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	return g.registry.Create(canonical, g.cfg.providerConfig(canonical, g.registry.Resolve))
}

func (g *Generator) recordTokens(ctx context.Context, resp *llm.Response) {
	if g.metrics == nil || resp.Usage == nil {
		return
	}
	g.metrics.RecordTokens(ctx, resp.Provider, resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
}

func (g *Generator) recordFallback(ctx context.Context, to string) {
	if g.metrics != nil {
		g.metrics.RecordFallback(ctx, g.primary, to)
	}
}

func (g *Generator) logFailure(ctx context.Context, name string, err error) {
	fields := logger.ErrorFields("generate", err)
	fields[logger.FieldProvider] = name
	if appErr, ok := errors.AsAppError(err); ok {
		fields["kind"] = string(appErr.Kind())
	}
	g.log.WithContext(ctx).Warn("provider failed, trying fallback", fields)
}

func withRequestID(ctx context.Context) context.Context {
	if logger.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return logger.ContextWithRequestID(ctx, uuid.NewString())
}

func (g *Generator) operation(ctx context.Context, name string) observability.Operation {
	return observability.Operation{
		Service:   g.cfg.ServiceName,
		Name:      name,
		RequestID: logger.RequestIDFromContext(ctx),
		Provider:  g.primary,
	}
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/llmx/errors"
	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/logger"
	"github.com/kbukum/llmx/resilience"
	"github.com/kbukum/llmx/server/middleware"
)

// Generator is the generation surface the API serves.
type Generator interface {
	Generate(ctx context.Context, messages []any, cfg llm.GenerationConfig, extra map[string]any) (*llm.Response, error)
	GenerateStream(ctx context.Context, messages []any, cfg llm.GenerationConfig, extra map[string]any) (llm.Stream, error)
	ListProviders() []string
	Provider() string
	DefaultModel() string
	ClearCache(ctx context.Context)
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	Messages    []any          `json:"messages" binding:"required,min=1"`
	Model       string         `json:"model"`
	MaxTokens   *int           `json:"max_tokens"`
	Temperature *float64       `json:"temperature"`
	TopP        *float64       `json:"top_p"`
	Stream      bool           `json:"stream"`
	UseCache    *bool          `json:"use_cache"`
	Extra       map[string]any `json:"extra"`
}

// GenerationConfig converts the request into per-call settings. use_cache
// defaults to true.
func (r GenerateRequest) GenerationConfig() llm.GenerationConfig {
	cfg := llm.DefaultGenerationConfig()
	cfg.Model = r.Model
	cfg.MaxTokens = r.MaxTokens
	cfg.Temperature = r.Temperature
	cfg.TopP = r.TopP
	cfg.Stream = r.Stream
	if r.UseCache != nil {
		cfg.UseCache = *r.UseCache
	}
	return cfg
}

// ProvidersResponse is the body of GET /v1/providers.
type ProvidersResponse struct {
	Providers    []string `json:"providers"`
	Default      string   `json:"default"`
	DefaultModel string   `json:"default_model"`
}

// API serves generation over HTTP.
type API struct {
	gen      Generator
	bulkhead *resilience.Bulkhead
	cfg      Config
	log      *logger.Logger
}

// NewAPI creates the API handlers for gen.
func NewAPI(gen Generator, cfg Config, log *logger.Logger) *API {
	return &API{
		gen: gen,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "generate",
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       time.Duration(cfg.QueueTimeout) * time.Second,
		}),
		cfg: cfg,
		log: log.WithComponent("api"),
	}
}

// Stats reports generation slot usage for /metrics.
func (a *API) Stats() map[string]any {
	return map[string]any{
		"generations_in_flight": a.bulkhead.InUse(),
		"generation_slots_free": a.bulkhead.Available(),
	}
}

// Register mounts the /v1 routes on r.
func (a *API) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.Use(middleware.Auth(middleware.AuthConfig{Keys: a.cfg.APIKeys}))
	if a.cfg.RateLimitPerMinute > 0 {
		v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerMinute: a.cfg.RateLimitPerMinute,
			KeyFunc:           middleware.ClientKey,
		}))
	}
	v1.POST("/generate", a.Generate)
	v1.GET("/providers", a.Providers)
	v1.DELETE("/cache", a.ClearCache)
}

// Generate answers with a JSON response, or with server-sent events when
// the request sets stream.
func (a *API) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.Validation("invalid request body: "+err.Error()))
		return
	}

	release, err := a.bulkhead.Acquire(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	defer release()

	cfg := req.GenerationConfig()
	if req.Stream {
		a.stream(c, req, cfg)
		return
	}

	resp, err := a.gen.Generate(c.Request.Context(), req.Messages, cfg, req.Extra)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// stream relays chunks as "chunk" events. A failure after the first byte
// is reported as one "error" event.
func (a *API) stream(c *gin.Context, req GenerateRequest, cfg llm.GenerationConfig) {
	ctx := c.Request.Context()
	s, err := a.gen.GenerateStream(ctx, req.Messages, cfg, req.Extra)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	defer func() { _ = s.Close() }()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for {
		chunk, ok, err := s.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.SSEvent("error", apperrors.Wrap(err).ToResponse())
				c.Writer.Flush()
			}
			a.log.WithContext(ctx).Warn("stream failed", logger.ErrorFields("generate_stream", err))
			return
		}
		if !ok {
			return
		}
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
		if chunk.Done {
			return
		}
	}
}

// Providers lists every registered provider name and alias.
func (a *API) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, ProvidersResponse{
		Providers:    a.gen.ListProviders(),
		Default:      a.gen.Provider(),
		DefaultModel: a.gen.DefaultModel(),
	})
}

// ClearCache drops every cached response.
func (a *API) ClearCache(c *gin.Context) {
	a.gen.ClearCache(c.Request.Context())
	RespondNoContent(c)
}

// Package server exposes a Generator over HTTP using Gin, served over
// HTTP/1.1 and h2c.
//
// # Routes
//
//   - POST /v1/generate: blocking generation, or server-sent events when the
//     body sets "stream": true
//   - GET /v1/providers: registered provider names and aliases
//   - DELETE /v1/cache: drop every cached response
//   - /health, /ready, /alive, /info, /metrics: operational endpoints
//
// # Middleware
//
// Every request passes Recovery, RequestID, CORS, BodySizeLimit and
// RequestLogger at the handler level. The /v1 group adds bearer-key Auth
// (when keys are configured) and per-client RateLimit. Concurrent
// generations are capped by a bulkhead; excess requests get 429.
package server

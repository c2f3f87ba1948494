// Package resilience provides the fault-tolerance building blocks used around
// upstream LLM calls.
//
//   - Retry: bounded attempts with capped exponential backoff that honors
//     Retry-After hints carried by rate-limit errors
//   - RateLimiter: optional client-side pacing per provider
//   - Bulkhead: a cap on concurrent generations served by one process
package resilience

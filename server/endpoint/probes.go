// Package endpoint implements the operational endpoints every llmx server
// exposes next to the generation API.
package endpoint

import (
	"context"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/llmx/observability"
)

// Version is the build version, set with
// -ldflags "-X github.com/kbukum/llmx/server/endpoint.Version=v1.2.3".
var Version = "dev"

var startTime = time.Now()

// HealthChecker returns the health of the service's dependencies.
type HealthChecker func(ctx context.Context) []observability.Health

// StatsFunc returns service counters merged into the /metrics body.
type StatsFunc func() map[string]any

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func check(c *gin.Context, serviceName string, checker HealthChecker) *observability.ServiceHealth {
	sh := observability.NewServiceHealth(serviceName, Version)
	if checker != nil {
		for _, h := range checker(c.Request.Context()) {
			sh.AddComponent(h)
		}
	}
	return sh
}

// Health reports every component. A down component answers 503; a
// degraded one still answers 200.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := check(c, serviceName, checker)
		c.JSON(sh.HTTPStatus(), gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  now(),
			"components": sh.Components,
		})
	}
}

// Readiness answers 503 while any component is down.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := check(c, serviceName, checker)
		status := "ready"
		if sh.Status == observability.HealthStatusDown {
			status = "not_ready"
		}
		c.JSON(sh.HTTPStatus(), gin.H{"status": status, "service": serviceName, "timestamp": now()})
	}
}

// Liveness confirms the process can serve HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName, "timestamp": now()})
	}
}

// Info reports the build: version, VCS revision and Go version.
func Info(serviceName string) gin.HandlerFunc {
	var commit string
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				commit = s.Value
			}
		}
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    serviceName,
			"version":    Version,
			"git_commit": commit,
			"go_version": runtime.Version(),
			"uptime":     time.Since(startTime).Round(time.Second).String(),
			"timestamp":  now(),
		})
	}
}

// Metrics reports runtime figures plus whatever stats returns.
func Metrics(stats StatsFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		body := gin.H{
			"timestamp":  now(),
			"goroutines": runtime.NumGoroutine(),
			"memory": gin.H{
				"alloc_mb": m.Alloc >> 20,
				"sys_mb":   m.Sys >> 20,
				"gc_runs":  m.NumGC,
			},
		}
		if stats != nil {
			for k, v := range stats() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

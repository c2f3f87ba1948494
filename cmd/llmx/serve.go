package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/llmx/generator"
	"github.com/kbukum/llmx/observability"
	"github.com/kbukum/llmx/server"
	"github.com/kbukum/llmx/server/endpoint"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Listen host")
	cmd.Flags().Int("port", 0, "Listen port (default 8080)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Name, cfg.Version, cfg.Environment, cfg.Observability)
	if err != nil {
		return fmt.Errorf("observability setup: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.WithoutCancel(ctx)) }()

	opts := []generator.Option{generator.WithLogger(log)}
	if cfg.Observability.Enabled {
		metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, generator.WithMetrics(metrics))
	}

	gen, err := generator.New(ctx, cfg.Config, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = gen.Close(context.WithoutCancel(ctx)) }()

	srv := server.New(cfg.Server, log)
	api := server.NewAPI(gen, cfg.Server, log)
	api.Register(srv.GinEngine())
	srv.RegisterDefaultEndpoints(cfg.Name, cacheHealth(gen), func() map[string]any {
		stats := api.Stats()
		stats["cache_entries"] = gen.Cache().Len()
		return stats
	})
	srv.LogRoutes()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "llmx serving %s on %s (fallbacks: %v)\n", gen.Provider(), srv.Addr(), gen.Fallbacks())

	<-ctx.Done()
	return srv.Stop(context.WithoutCancel(ctx))
}

// cacheHealth reports the shared cache store. An unreachable store degrades
// the service, since the in-process cache keeps serving.
func cacheHealth(gen *generator.Generator) endpoint.HealthChecker {
	return func(ctx context.Context) []observability.Health {
		h := observability.Health{Name: "cache", Status: observability.HealthStatusUp}
		c := gen.Cache()
		if !c.Enabled() {
			h.Message = "disabled"
			return []observability.Health{h}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			h.Status = observability.HealthStatusDegraded
			h.Message = err.Error()
		}
		return []observability.Health{h}
	}
}

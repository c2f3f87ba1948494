package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/llmx/generator"
	"github.com/kbukum/llmx/llm"
	"github.com/kbukum/llmx/llm/providers"
	"github.com/kbukum/llmx/logger"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available providers:")
			for _, name := range providers.Names() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}
}

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test provider connectivity (all providers unless --provider is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("provider") {
				if !testProvider(cmd.Context(), out, log, cfg.Config, cfg.Provider) {
					return fmt.Errorf("provider %s failed", cfg.Provider)
				}
				return nil
			}

			names := canonicalProviders()
			fmt.Fprintf(out, "Testing %d providers...\n\n", len(names))
			passed := 0
			for _, name := range names {
				base := cfg.Config
				if !sameProvider(name, cfg.Provider) {
					base.ProviderConfig = inheritTransport(base.ProviderConfig)
					base.Model = ""
				}
				if testProvider(cmd.Context(), out, log, base, name) {
					passed++
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Results: %d/%d providers working\n", passed, len(names))
			if passed < len(names) {
				return fmt.Errorf("%d of %d providers failed", len(names)-passed, len(names))
			}
			return nil
		},
	}
}

// testProvider sends one short uncached prompt and reports the outcome.
func testProvider(ctx context.Context, out io.Writer, log *logger.Logger, cfg generator.Config, name string) bool {
	fmt.Fprintf(out, "Testing %s...\n", name)
	cfg.Provider = name
	cfg.Fallbacks = nil
	cfg.Cache.Enabled = false

	gen, err := generator.New(ctx, cfg, generator.WithLogger(log))
	if err != nil {
		fmt.Fprintf(out, "✗ %s: Failed - %v\n", name, err)
		return false
	}
	defer func() { _ = gen.Close(context.WithoutCancel(ctx)) }()

	gc := llm.DefaultGenerationConfig()
	gc.MaxTokens = llm.Int(10)
	gc.UseCache = false
	resp, err := gen.Generate(ctx, []any{map[string]string{"role": "user", "content": "Hello"}}, gc, nil)
	if err != nil {
		fmt.Fprintf(out, "✗ %s: Failed - %v\n", name, err)
		return false
	}

	fmt.Fprintf(out, "✓ %s: Connected successfully\n", name)
	fmt.Fprintf(out, "  Model: %s\n", resp.Model)
	fmt.Fprintf(out, "  Response: %s...\n", truncate(resp.Text(), 50))
	return true
}

// canonicalProviders lists registered providers without their aliases.
func canonicalProviders() []string {
	var names []string
	for _, name := range providers.Names() {
		if canonical, err := providers.Resolve(name); err == nil && canonical == name {
			names = append(names, name)
		}
	}
	return names
}

func sameProvider(a, b string) bool {
	ca, errA := providers.Resolve(a)
	cb, errB := providers.Resolve(b)
	return errA == nil && errB == nil && ca == cb
}

// inheritTransport drops the endpoint and credential so a provider resolves
// its own from the environment.
func inheritTransport(pc llm.ProviderConfig) llm.ProviderConfig {
	pc.APIKey = ""
	pc.APIBase = ""
	pc.Organization = ""
	return pc
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

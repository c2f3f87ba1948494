package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/llmx/generator"
	"github.com/kbukum/llmx/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "llmx",
		Short: "Unified client for LLM provider APIs",
		Long: "llmx sends conversations to OpenAI, Claude, Grok, Cohere and HuggingFace style " +
			"APIs through one interface, with response caching and provider fallback.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default: ./llmx.yml or ~/.config/llmx/config.yml)")
	pf.String("env-file", "", "Env file to load (default: ./.env)")
	pf.StringP("provider", "p", "", "LLM provider to use")
	pf.StringP("model", "m", "", "Model to use (provider default if not specified)")
	pf.StringSlice("fallback", nil, "Fallback providers, tried in order when the primary fails")
	pf.String("api-key", "", "API key (overrides the provider's environment variable)")
	pf.String("api-base", "", "API base URL")
	pf.Duration("timeout", 0, "Request timeout (default 30s)")
	pf.String("redis-url", "", "Redis URL for a shared response cache")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newChatCmd(),
		newGenerateCmd(),
		newListCmd(),
		newTestCmd(),
		newServeCmd(),
	)
	return root
}

// setup loads configuration and installs the process logger, which writes
// to the command's stderr.
func setup(cmd *cobra.Command) (AppConfig, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	log := logger.NewWithWriter(&cfg.Logging, cfg.Name, cmd.ErrOrStderr())
	logger.SetGlobalLogger(log)
	return cfg, log, nil
}

// openGenerator builds the generator described by the loaded configuration.
func openGenerator(cmd *cobra.Command) (*generator.Generator, error) {
	cfg, log, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	return generator.New(cmd.Context(), cfg.Config, generator.WithLogger(log))
}

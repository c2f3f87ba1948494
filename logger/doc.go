// Package logger provides structured logging for llmx using zerolog.
//
// Logs default to stderr at warn level so that generated text written to
// stdout by the CLI is never interleaved with diagnostics.
//
// # Usage
//
//	log := logger.WithComponent("generator")
//	log.Info("cache hit", logger.Fields(logger.FieldProvider, "openai"))
package logger

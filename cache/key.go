package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/kbukum/llmx/llm"
)

// DefaultKeyPrefix namespaces every cache key.
const DefaultKeyPrefix = "llmx:"

// DeriveKey returns prefix + hex(sha256(canonical JSON)) for one generation
// request. The canonical form holds the ordered messages, model, max_tokens,
// temperature, top_p and provider; unset parameters encode as null. Object
// keys are sorted by encoding/json.
func DeriveKey(prefix string, messages []llm.Message, cfg llm.GenerationConfig, provider string) string {
	msgs := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	var model any
	if cfg.Model != "" {
		model = cfg.Model
	}
	canonical := map[string]any{
		"messages":    msgs,
		"model":       model,
		"max_tokens":  cfg.MaxTokens,
		"temperature": cfg.Temperature,
		"top_p":       cfg.TopP,
		"provider":    provider,
	}

	// Only strings, maps, slices and numeric pointers: Marshal cannot fail.
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return prefix + hex.EncodeToString(sum[:])
}

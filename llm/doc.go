// Package llm is the provider-agnostic core of llmx: canonical message and
// response types, the Dialect contract each backend implements, and the
// Adapter that drives any Dialect over HTTP.
//
// # Architecture
//
//   - Canonical types: [Message], [GenerationConfig], [ProviderConfig],
//     [Response], [StreamChunk]
//   - [Dialect]: maps canonical types to and from one backend's wire format
//   - [Adapter]: composes the httpclient transport with a Dialect and
//     implements [Provider]
//   - [Stream] and [Pump]: pull and channel views of a streamed answer
//   - [Future]: the result of AsyncGenerate
//
// # Usage
//
//	a, err := llm.New(openai.Dialect{}, llm.DefaultProviderConfig())
//	resp, err := a.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: "Hello!"}},
//	    llm.GenerationConfig{MaxTokens: llm.Int(10)}, nil)
//
// Streaming:
//
//	s, err := a.GenerateStream(ctx, msgs, cfg, nil)
//	defer s.Close()
//	for {
//	    chunk, ok, err := s.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Print(chunk.Content)
//	}
//
// # Errors
//
// HTTP 401 becomes an authentication error, 429 a rate-limit error carrying
// the Retry-After hint, and any other non-2xx status a provider error with
// the backend's own message when it can be parsed. Transport failures, 429
// and 5xx are retried with exponential backoff for at most three attempts.
package llm

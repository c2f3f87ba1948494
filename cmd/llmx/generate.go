package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/llmx/generator"
	"github.com/kbukum/llmx/llm"
)

// generationFlags are the per-call settings shared by chat and generate.
type generationFlags struct {
	maxTokens   int
	temperature float64
	topP        float64
	stream      bool
	noCache     bool
	async       bool
}

func (f *generationFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	fl.Float64Var(&f.temperature, "temperature", 0, "Sampling temperature (0.0 to 2.0)")
	fl.Float64Var(&f.topP, "top-p", 0, "Top-p sampling parameter")
	fl.BoolVar(&f.stream, "stream", false, "Stream the response")
	fl.BoolVar(&f.noCache, "no-cache", false, "Disable caching")
	fl.BoolVar(&f.async, "async", false, "Run generation on a background goroutine")
}

// config builds the generation settings. Unset numeric flags stay unset so
// the provider default applies.
func (f *generationFlags) config(cmd *cobra.Command) llm.GenerationConfig {
	cfg := llm.DefaultGenerationConfig()
	if cmd.Flags().Changed("max-tokens") {
		cfg.MaxTokens = llm.Int(f.maxTokens)
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Temperature = llm.Float(f.temperature)
	}
	if cmd.Flags().Changed("top-p") {
		cfg.TopP = llm.Float(f.topP)
	}
	cfg.Stream = f.stream
	cfg.UseCache = !f.noCache
	return cfg
}

func newGenerateCmd() *cobra.Command {
	var flags generationFlags
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate text from a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, &flags, func(s *session) error {
				return s.single(cmd.Context(), args[0])
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newChatCmd() *cobra.Command {
	var (
		flags  generationFlags
		prompt string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with an LLM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, &flags, func(s *session) error {
				if prompt != "" {
					return s.single(cmd.Context(), prompt)
				}
				return s.interactive(cmd.Context(), cmd.InOrStdin(), cmd.ErrOrStderr())
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&prompt, "prompt", "", "Single prompt to send (non-interactive mode)")
	return cmd
}

func withSession(cmd *cobra.Command, flags *generationFlags, fn func(*session) error) error {
	gen, err := openGenerator(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = gen.Close(context.WithoutCancel(cmd.Context())) }()

	return fn(&session{
		gen:   gen,
		cfg:   flags.config(cmd),
		async: flags.async,
		out:   cmd.OutOrStdout(),
	})
}

// session runs generation turns and prints replies as they arrive.
type session struct {
	gen   *generator.Generator
	cfg   llm.GenerationConfig
	async bool
	out   io.Writer
}

func (s *session) single(ctx context.Context, prompt string) error {
	_, err := s.reply(ctx, []any{llm.Message{Role: llm.RoleUser, Content: prompt}})
	return err
}

// interactive reads user turns until quit, end of input or cancellation. A
// failed turn is reported and dropped from the history.
func (s *session) interactive(ctx context.Context, in io.Reader, errOut io.Writer) error {
	header := "LLMX Chat - Type 'quit' to exit"
	if s.async {
		header = "LLMX Chat (async mode) - Type 'quit' to exit"
	}
	fmt.Fprintln(s.out, header)
	fmt.Fprintln(s.out, strings.Repeat("-", len(header)))

	lines := readLines(in)
	var history []any
	for {
		fmt.Fprint(s.out, "\nYou: ")
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			return nil
		case "":
			continue
		}

		history = append(history, llm.Message{Role: llm.RoleUser, Content: line})
		fmt.Fprint(s.out, "Assistant: ")
		text, err := s.reply(ctx, history)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(errOut, "\nError: %v\n", err)
			history = history[:len(history)-1]
			continue
		}
		history = append(history, llm.Message{Role: llm.RoleAssistant, Content: text})
	}
}

// reply runs one generation in the configured mode, prints the text and
// returns it.
func (s *session) reply(ctx context.Context, messages []any) (string, error) {
	if s.cfg.Stream {
		text, err := s.streamReply(ctx, messages)
		fmt.Fprintln(s.out)
		return text, err
	}

	var (
		resp *llm.Response
		err  error
	)
	if s.async {
		resp, err = s.gen.AsyncGenerate(ctx, messages, s.cfg, nil).Await(ctx)
	} else {
		resp, err = s.gen.Generate(ctx, messages, s.cfg, nil)
	}
	if err != nil {
		return "", err
	}
	fmt.Fprintln(s.out, resp.Text())
	return resp.Text(), nil
}

func (s *session) streamReply(ctx context.Context, messages []any) (string, error) {
	var b strings.Builder
	emit := func(c llm.StreamChunk) {
		fmt.Fprint(s.out, c.Content)
		b.WriteString(c.Content)
	}

	if s.async {
		ch, err := s.gen.AsyncGenerateStream(ctx, messages, s.cfg, nil)
		if err != nil {
			return "", err
		}
		for c := range ch {
			if c.Err != nil {
				return b.String(), c.Err
			}
			emit(c)
		}
		return b.String(), ctx.Err()
	}

	stream, err := s.gen.GenerateStream(ctx, messages, s.cfg, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = stream.Close() }()
	for {
		c, ok, err := stream.Next(ctx)
		if err != nil {
			return b.String(), err
		}
		if !ok {
			return b.String(), nil
		}
		emit(c)
		if c.Done {
			return b.String(), nil
		}
	}
}

// readLines delivers r line by line and closes the channel at end of input.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

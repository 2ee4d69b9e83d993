// Package structured turns a prompt builder and a text generator into a typed call.
package structured

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tbxark/interviewagent/extract"
	"github.com/tbxark/interviewagent/llm"
	"github.com/tbxark/interviewagent/prompt"
	"github.com/tbxark/interviewagent/types"
)

type PromptBuilder[TInput any] func(ctx context.Context, input TInput) (prompt.Prompt, error)

// Chain builds a prompt, calls the generator once and decodes the reply.
type Chain[TInput, TOutput any] struct {
	PromptBuilder PromptBuilder[TInput]
	Generator     llm.Generator
}

func NewChain[TInput, TOutput any](generator llm.Generator, promptBuilder PromptBuilder[TInput]) *Chain[TInput, TOutput] {
	return &Chain[TInput, TOutput]{
		PromptBuilder: promptBuilder,
		Generator:     generator,
	}
}

// Invoke returns the decoded output, or nil when the reply could not be decoded.
// The raw reply is always returned when the generator succeeded. A failed or
// timed out call is reported as types.ErrGenerationUnavailable.
func (c *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, string, error) {
	p, err := c.PromptBuilder(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("build prompt failed: %w", err)
	}

	slog.Debug("Requesting generation", "task", p.Task)
	raw, err := c.Generator.Generate(ctx, p.User, p.System)
	if err != nil {
		slog.Error("Generation failed", "task", p.Task, "error", err)
		return nil, "", fmt.Errorf("%w: %w", types.ErrGenerationUnavailable, err)
	}

	var result TOutput
	if !extract.Decode(raw, &result) {
		slog.Warn("Unparsable generation output", "task", p.Task, "raw", raw)
		return nil, raw, nil
	}
	slog.Debug("Decoded generation output", "task", p.Task, "result", result)
	return &result, raw, nil
}

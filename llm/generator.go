// Package llm adapts text generation backends to the single blocking call the
// dialogue engine needs.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Generator returns free-form text for a prompt. Output may or may not be JSON.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

type GeneratorFunc func(ctx context.Context, prompt, systemPrompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return f(ctx, prompt, systemPrompt)
}

type sessionKeyContext struct{}

// WithSessionID tags the context with the session a generation call belongs to.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, id)
}

// SessionIDFromContext gets the session id set by WithSessionID.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(sessionKeyContext{})
	if value == nil {
		return "", false
	}
	id, ok := value.(string)
	return id, ok
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every call to next. A non-positive timeout returns next unchanged.
func WithTimeout(next Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return next
	}
	return &timeoutGenerator{next: next, timeout: timeout}
}

func (g *timeoutGenerator) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := g.next.Generate(ctx, prompt, systemPrompt)
		done <- result{text: text, err: err}
	}()
	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("generation timed out after %s: %w", g.timeout, ctx.Err())
	}
}

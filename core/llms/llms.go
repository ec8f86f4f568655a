// Package llms defines the language-generation contract used by the roles.
//
// A provider receives the learner utterance (or a role-built prompt), the
// role's instructions and the recent conversation history, and returns the
// next turn of dialogue as text.
package llms

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("llm not configured")
	ErrEmptyResponse = errors.New("llm returned an empty response")
)

// Generator produces the next turn of dialogue.
type Generator interface {
	Prompt(ctx context.Context, prompt string, opts ...PromptOption) (*Response, error)
}

// GeneratorFunc adapts a function to a Generator.
type GeneratorFunc func(ctx context.Context, prompt string, opts ...PromptOption) (*Response, error)

func (f GeneratorFunc) Prompt(ctx context.Context, prompt string, opts ...PromptOption) (*Response, error) {
	return f(ctx, prompt, opts...)
}

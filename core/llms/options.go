package llms

import "slices"

// PromptOptions contains everything a provider needs besides the prompt
// itself.
type PromptOptions struct {
	Instructions string
	Turns        []Turn
}

type PromptOption func(*PromptOptions)

// WithInstructions sets the behavioural instructions (system prompt) for the
// prompt. Repeating this option will overwrite the previous instructions.
func WithInstructions(instructions string) PromptOption {
	return func(opts *PromptOptions) {
		opts.Instructions = instructions
	}
}

// WithTurns sets the conversation history preceding the prompt.
func WithTurns(turns ...Turn) PromptOption {
	return func(opts *PromptOptions) {
		opts.Turns = slices.Clone(turns)
	}
}

func ApplyOptions(opts ...PromptOption) PromptOptions {
	options := PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

package orchestration

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDuplicateSession = errors.New("duplicate session")
	ErrSessionClosed    = errors.New("session closed")
	ErrVoiceUnavailable = errors.New("voice unavailable")
	ErrProviderTimeout  = errors.New("provider timed out")
	ErrProviderError    = errors.New("provider failed")
)

const (
	genericErrorMessage          = "Sorry, I encountered an error. Please try again."
	voiceUnavailableErrorMessage = "Voice mode is unavailable right now. You can keep going by typing."
)

// classifyProviderError maps a failed provider call onto the error taxonomy.
// Deadline expiry is a timeout; anything else is a provider error.
func classifyProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, ErrProviderError):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrProviderTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrProviderError, err)
	}
}

package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-tutor/core/audio"
	"github.com/koscakluka/ema-tutor/core/llms"
	"github.com/koscakluka/ema-tutor/core/roles"
	"github.com/koscakluka/ema-tutor/core/speech"
)

const defaultProviderTimeout = 20 * time.Second

type OrchestratorOption func(*Orchestrator)

// WithLLM sets the language-generation provider used by every role.
func WithLLM(generator llms.Generator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.llm = generator
	}
}

// WithSpeechProvider enables voice mode. Without it sessions are text-only.
func WithSpeechProvider(provider speech.Provider) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speech = provider
	}
}

// WithProviderTimeout bounds every provider call. Expiry is reported to the
// client as a recoverable error. Zero disables the bound.
func WithProviderTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.providerTimeout = timeout
	}
}

func WithRoleRegistry(registry *roles.Registry) OrchestratorOption {
	return func(o *Orchestrator) {
		o.roles = registry
	}
}

func WithSessionRegistry(registry *SessionRegistry) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sessions = registry
	}
}

// WithVoiceDefault sets whether new sessions start in voice mode when a
// speech provider is configured.
func WithVoiceDefault(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.voiceDefault = enabled
	}
}

// WithEncodingInfo sets the encoding of learner audio and synthesized speech.
func WithEncodingInfo(encoding audio.EncodingInfo) OrchestratorOption {
	return func(o *Orchestrator) {
		o.encoding = encoding
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithBaseContext sets the context session work derives from. Values are
// kept but its cancellation is not inherited.
func WithBaseContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		o.baseContext = ctx
	}
}

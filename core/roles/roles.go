// Package roles holds the fixed set of conversational roles a tutoring
// session can hand the learner between.
//
// A role is a data record (instructions, voice profile, display info and an
// ordered cue rule table) plus the functions producing its opening turn and
// its responses. Roles are created once and shared read-only by all sessions.
package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-tutor/core/cues"
	"github.com/koscakluka/ema-tutor/core/llms"
)

type ID string

const (
	Welcomer          ID = "welcomer"
	QuestionPresenter ID = "question-presenter"
	StepByStepTutor   ID = "step-by-step-tutor"
)

var ErrUnknownRole = errors.New("unknown role")

// Info is the static display metadata of a role.
type Info struct {
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Description string `json:"description"`
	Role        string `json:"role"`
	Voice       string `json:"voice"`
}

// Transition is one row of a role's cue table: when Cue matches, the
// conversation should move to Next.
type Transition struct {
	Cue    cues.Cue
	Next   ID
	Reason string
}

// Request is what a role sees when asked to speak.
type Request struct {
	// Utterance is the learner text being responded to. It may be empty for
	// opening turns.
	Utterance string
	// Previous is the role that handed over, empty when the session starts.
	Previous ID
	Progress Progress
	History  []llms.Turn
}

// Result is a role's turn: the text to say and the progress it leaves behind.
type Result struct {
	Text     string
	Progress Progress
}

type responder func(ctx context.Context, generator llms.Generator, role *Role, req Request) (Result, error)

type Role struct {
	ID           ID
	Info         Info
	Instructions string
	// Voice is the speech provider voice profile used for this role.
	Voice string
	// Transitions are evaluated in order; the first matching row wins.
	Transitions []Transition

	opening responder
	respond responder
}

// StartConversation produces the role's opening turn after it becomes active.
func (r *Role) StartConversation(ctx context.Context, generator llms.Generator, req Request) (Result, error) {
	if r.opening == nil {
		return r.ProduceResponse(ctx, generator, req)
	}
	return r.opening(ctx, generator, r, req)
}

// ProduceResponse answers a learner utterance.
func (r *Role) ProduceResponse(ctx context.Context, generator llms.Generator, req Request) (Result, error) {
	if r.respond == nil {
		return Result{}, fmt.Errorf("role %s cannot respond", r.ID)
	}
	return r.respond(ctx, generator, r, req)
}

// DetectTransition runs the role's cue table against text and returns the
// first matching row.
func (r *Role) DetectTransition(text string, from cues.Speaker) (Transition, bool) {
	for _, transition := range r.Transitions {
		if transition.Cue(text, from) {
			return transition, true
		}
	}
	return Transition{}, false
}

func generate(ctx context.Context, generator llms.Generator, prompt string, opts ...llms.PromptOption) (string, error) {
	if generator == nil {
		return "", llms.ErrNotConfigured
	}

	response, err := generator.Prompt(ctx, prompt, opts...)
	if err != nil {
		return "", err
	}
	if response == nil || response.Content == "" {
		return "", llms.ErrEmptyResponse
	}

	return response.Content, nil
}

package roles

import (
	"context"

	"github.com/koscakluka/ema-tutor/core/cues"
	"github.com/koscakluka/ema-tutor/core/llms"
)

const (
	welcomeMessage    = "Hello! I'm here to help you with math. What grade are you in, and how comfortable do you feel with math?"
	startFreshMessage = "No problem, let's start fresh! Tell me again what grade you're in and what kind of math you'd like to work on."
)

const welcomerInstructions = `You are a friendly and welcoming math tutor. Your job is to:

1. Greet students warmly and make them feel comfortable
2. Ask about their grade level and how comfortable they are with math
3. Work out what kind of math problems suit them
4. Once you understand their level, hand them over to the question presenter

Keep your replies brief and encouraging, with a patient tone.
Ask one question at a time so the student is not overwhelmed.

When they are ready for problems, say something like "Great! Let me have my colleague present you with a math problem that's perfect for your level."`

func NewWelcomer() *Role {
	return &Role{
		ID: Welcomer,
		Info: Info{
			Name:        "Welcomer",
			Avatar:      "👋",
			Description: "Getting to know you...",
			Role:        "Greeting and assessment",
			Voice:       "aura-asteria-en",
		},
		Instructions: welcomerInstructions,
		Voice:        "aura-asteria-en",
		Transitions: []Transition{
			{Cue: cues.LearnerOnly(cues.WantsReset), Next: Welcomer, Reason: "learner asked to start over"},
			{Cue: cues.SignalsReadyForProblem, Next: QuestionPresenter, Reason: "learner ready for a problem"},
		},
		opening: welcomerOpening,
		respond: welcomerRespond,
	}
}

func welcomerOpening(_ context.Context, _ llms.Generator, _ *Role, req Request) (Result, error) {
	progress := req.Progress
	if req.Previous == "" {
		return Result{Text: welcomeMessage, Progress: progress}, nil
	}

	progress.CurrentProblem = nil
	progress.LastAnswer = ""
	progress.TutoringStep = ""
	progress.StudentProgress = ""
	return Result{Text: startFreshMessage, Progress: progress}, nil
}

func welcomerRespond(ctx context.Context, generator llms.Generator, role *Role, req Request) (Result, error) {
	progress := req.Progress
	progress.StudentLevel = progress.StudentLevel.Merge(ExtractStudentLevel(req.Utterance))

	text, err := generate(ctx, generator, req.Utterance,
		llms.WithInstructions(role.Instructions),
		llms.WithTurns(req.History...),
	)
	if err != nil {
		return Result{}, err
	}

	// A reply that repeats the level back only fills what is still unknown.
	echoed := ExtractStudentLevel(text)
	if progress.StudentLevel.Grade == 0 {
		progress.StudentLevel.Grade = echoed.Grade
	}
	if progress.StudentLevel.Band == "" {
		progress.StudentLevel.Band = echoed.Band
	}

	return Result{Text: text, Progress: progress}, nil
}

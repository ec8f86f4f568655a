package roles

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-tutor/core/cues"
	"github.com/koscakluka/ema-tutor/core/llms"
)

const questionPresenterInstructions = `You are a clear and instructional math teacher. Your job is to:

1. Present math problems that fit the student's assessed level
2. Explain clearly what the problem is asking
3. Listen to the student's first attempt or reply
4. If they seem confused or ask for help, hand them over to the step-by-step tutor
5. If they solve it, praise them and offer to present another problem

Use a clear, instructional tone and present one problem at a time.

If a student says "I don't know", "help me", or seems confused, say something like "Let me have our tutor guide you through this step by step."`

func NewQuestionPresenter() *Role {
	return &Role{
		ID: QuestionPresenter,
		Info: Info{
			Name:        "Question Presenter",
			Avatar:      "📚",
			Description: "Here's your problem...",
			Role:        "Problem presentation",
			Voice:       "aura-luna-en",
		},
		Instructions: questionPresenterInstructions,
		Voice:        "aura-luna-en",
		Transitions: []Transition{
			{Cue: cues.LearnerOnly(cues.WantsReset), Next: Welcomer, Reason: "learner asked to start over"},
			{Cue: cues.LearnerOnly(cues.WantsHelp), Next: StepByStepTutor, Reason: "learner asked for help"},
		},
		opening: presentProblem,
		respond: presenterRespond,
	}
}

func presentProblem(_ context.Context, _ llms.Generator, _ *Role, req Request) (Result, error) {
	progress := req.Progress
	problem := NextProblem(progress)
	progress.CurrentProblem = &problem
	progress.ProblemsPresented++
	progress.LastAnswer = ""
	progress.TutoringStep = ""
	progress.StudentProgress = ""

	var text string
	if req.Previous == StepByStepTutor {
		text = fmt.Sprintf("Great work! Here's another %s level problem for you: %s. Give it a try and tell me what you get!", problem.Level, problem.Text)
	} else {
		text = fmt.Sprintf("Perfect! Based on what you've told me, here's a %s level problem for you: %s. Take your time and let me know what you think!", problem.Level, problem.Text)
	}

	return Result{Text: text, Progress: progress}, nil
}

func presenterRespond(ctx context.Context, generator llms.Generator, role *Role, req Request) (Result, error) {
	progress := req.Progress

	instructions := role.Instructions
	if problem := progress.CurrentProblem; problem != nil {
		instructions += fmt.Sprintf("\n\nThe student is working on this %s level problem: %s", problem.Level, problem.Text)
		progress.LastAnswer = req.Utterance
	}

	text, err := generate(ctx, generator, req.Utterance,
		llms.WithInstructions(instructions),
		llms.WithTurns(req.History...),
	)
	if err != nil {
		return Result{}, err
	}

	return Result{Text: text, Progress: progress}, nil
}

package roles

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/koscakluka/ema-tutor/core/cues"
	"github.com/koscakluka/ema-tutor/core/llms"
)

const stepByStepTutorInstructions = `You are a patient and encouraging math tutor. Your job is to:

1. Break complex problems down into manageable steps
2. Guide the student through the solution one step at a time
3. Give hints and encouragement without giving away the answer
4. Check understanding at each step before moving on
5. When the problem is solved, hand the student back to the question presenter

Ask "Does this step make sense?" or "Are you with me so far?" often.
Start with what the student knows and introduce one idea at a time, using simple
language and concrete examples. If they are still confused, try explaining it
a different way.

When the student solves the problem or shows they understand, say something like "Excellent! You've got it! Let me have my colleague give you another problem to practice with."`

const (
	ProgressGood          = "good"
	ProgressNeedsMoreHelp = "needs_more_help"
	ProgressNeutral       = "neutral"
)

var stepPattern = regexp.MustCompile(`(?i)step\s*\d+|\b(?:first|second|third|next|finally)\b`)

var (
	struggleIndicators = []string{"don't understand", "confused", "lost", "don't get it", "no"}
	successIndicators  = []string{"yes", "got it", "understand", "makes sense", "i see", "okay"}
)

func NewStepByStepTutor() *Role {
	return &Role{
		ID: StepByStepTutor,
		Info: Info{
			Name:        "Step-by-Step Tutor",
			Avatar:      "🎯",
			Description: "Let's work through this...",
			Role:        "Guided learning",
			Voice:       "aura-stella-en",
		},
		Instructions: stepByStepTutorInstructions,
		Voice:        "aura-stella-en",
		Transitions: []Transition{
			{Cue: cues.LearnerOnly(cues.WantsReset), Next: Welcomer, Reason: "learner asked to start over"},
			{Cue: cues.SignalsCompletion, Next: QuestionPresenter, Reason: "problem completed"},
		},
		respond: tutorRespond,
	}
}

func tutorRespond(ctx context.Context, generator llms.Generator, role *Role, req Request) (Result, error) {
	progress := req.Progress
	firstHelp := progress.TutoringStep == ""

	text, err := generate(ctx, generator, buildTutoringPrompt(req.Utterance, progress, firstHelp),
		llms.WithInstructions(role.Instructions),
		llms.WithTurns(req.History...),
	)
	if err != nil {
		return Result{}, err
	}

	progress.TutoringStep = ExtractTutoringStep(text)
	progress.StudentProgress = AssessProgress(req.Utterance)
	return Result{Text: text, Progress: progress}, nil
}

func buildTutoringPrompt(utterance string, progress Progress, firstHelp bool) string {
	problem := "a math problem"
	if progress.CurrentProblem != nil {
		problem = progress.CurrentProblem.Text
	}
	level := "Not specified"
	if progress.StudentLevel.Grade != 0 {
		level = fmt.Sprintf("Grade %d", progress.StudentLevel.Grade)
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Student is working on: %s\n", problem)
	fmt.Fprintf(&prompt, "Student level: %s\n", level)
	fmt.Fprintf(&prompt, "Student just said: %q\n\n", utterance)
	prompt.WriteString("Give step-by-step guidance in small, manageable steps and check their understanding often.\n")
	if firstHelp {
		prompt.WriteString("This is the first time you are helping with this problem, so start by asking which part is confusing them.\n")
	} else {
		prompt.WriteString("If they have made progress, acknowledge it and guide them to the next step.\n")
	}
	prompt.WriteString("Do not give the answer directly. Guide them to discover it themselves.")
	return prompt.String()
}

// ExtractTutoringStep returns the step marker used in a tutor reply, or
// "guidance" when the reply has none.
func ExtractTutoringStep(text string) string {
	if match := stepPattern.FindString(text); match != "" {
		return strings.ToLower(match)
	}
	return "guidance"
}

// AssessProgress classifies how the learner feels about the current step.
// Struggle is checked first because "don't understand" contains
// "understand".
func AssessProgress(utterance string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(utterance, "’", "'")))
	normalized := " " + strings.Join(words, " ") + " "
	normalized = strings.NewReplacer(",", " ", ".", " ", "!", " ", "?", " ").Replace(normalized)

	for _, indicator := range struggleIndicators {
		if strings.Contains(normalized, " "+indicator+" ") {
			return ProgressNeedsMoreHelp
		}
	}
	for _, indicator := range successIndicators {
		if strings.Contains(normalized, " "+indicator+" ") {
			return ProgressGood
		}
	}
	return ProgressNeutral
}

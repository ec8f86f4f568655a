// Package cues detects the phrases in learner and role text that ask for a
// change of conversational role.
//
// Every predicate is a case-insensitive substring match over a fixed phrase
// table. Detection is synchronous and deterministic so that role transitions
// can be reproduced without calling any generation provider.
package cues

import "strings"

// Speaker identifies who produced a piece of text.
type Speaker string

const (
	SpeakerLearner Speaker = "student"
	SpeakerRole    Speaker = "role"
)

// Cue reports whether text from the given speaker carries a signal.
type Cue func(text string, from Speaker) bool

var (
	helpPhrases = []string{
		"i don't know",
		"help me",
		"i'm confused",
		"i need help",
		"how do i",
		"i'm stuck",
	}
	resetPhrases = []string{
		"different topic",
		"change subject",
		"start over",
		"new topic",
		"different problem type",
	}
	completionPhrases = []string{
		"got it",
		"i understand",
		"that makes sense",
		"i see",
		"oh okay",
		"next problem",
		"another problem",
	}
	acknowledgementPhrases = []string{
		"excellent",
		"great job",
		"you've got it",
		"perfect",
		"colleague",
		"question presenter",
	}
	readinessPhrases = []string{
		"ready for a problem",
		"give me a problem",
		"let's start",
		"i'm ready",
		"show me a problem",
	}
	handoffPhrases = []string{
		"colleague",
		"question presenter",
	}
)

func WantsHelp(text string) bool { return containsAny(text, helpPhrases) }

func WantsReset(text string) bool { return containsAny(text, resetPhrases) }

// SignalsCompletion matches completion phrases from either speaker and, for
// role output, acknowledgement phrases such as praise or a handoff.
func SignalsCompletion(text string, from Speaker) bool {
	if containsAny(text, completionPhrases) {
		return true
	}
	return from == SpeakerRole && containsAny(text, acknowledgementPhrases)
}

// SignalsReadyForProblem matches readiness phrases from either speaker and,
// for role output, a reference to handing the learner off.
func SignalsReadyForProblem(text string, from Speaker) bool {
	if containsAny(text, readinessPhrases) {
		return true
	}
	return from == SpeakerRole && containsAny(text, handoffPhrases)
}

// LearnerOnly restricts a text predicate to learner utterances.
func LearnerOnly(match func(string) bool) Cue {
	return func(text string, from Speaker) bool {
		return from == SpeakerLearner && match(text)
	}
}

func normalize(text string) string {
	// Typed and transcribed apostrophes differ.
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	return strings.ToLower(text)
}

func containsAny(text string, phrases []string) bool {
	normalized := normalize(text)
	for _, phrase := range phrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

package llms

import "time"

// TurnRole describes who took a turn in the conversation.
type TurnRole string

const (
	TurnRoleLearner   TurnRole = "learner"
	TurnRoleAssistant TurnRole = "assistant"
)

// Turn is a single turn taken in the conversation.
type Turn struct {
	ID   string
	Role TurnRole
	// Speaker is the conversational role that spoke for assistant turns,
	// empty for learner turns.
	Speaker string
	Content string
	At      time.Time
}

// Response is a single response from an LLM
type Response struct {
	Content string
}

package llms

import "testing"

func TestApplyOptionsKeepsLastInstructions(t *testing.T) {
	options := ApplyOptions(WithInstructions("first"), WithInstructions("second"))
	if options.Instructions != "second" {
		t.Fatalf("expected last instructions to win, got %q", options.Instructions)
	}
}

func TestWithTurnsCopiesHistory(t *testing.T) {
	turns := []Turn{{Role: TurnRoleLearner, Content: "hi"}}
	options := ApplyOptions(WithTurns(turns...))

	turns[0].Content = "changed"
	if options.Turns[0].Content != "hi" {
		t.Fatalf("expected turns to be copied, got %q", options.Turns[0].Content)
	}
}

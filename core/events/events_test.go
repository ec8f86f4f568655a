package events

import (
	"encoding/json"
	"testing"

	"github.com/koscakluka/ema-tutor/core/roles"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "session started", event: NewSessionStarted("s1", roles.Welcomer), expected: KindSessionStarted},
		{name: "session ended", event: NewSessionEnded("s1"), expected: KindSessionEnded},
		{name: "agent changed", event: NewAgentChanged(roles.Welcomer, roles.QuestionPresenter, roles.Info{}), expected: KindAgentChanged},
		{name: "agent response", event: NewAgentResponse("hi", roles.Welcomer, roles.Info{}), expected: KindAgentResponse},
		{name: "transcription", event: NewTranscription("hi", SpeakerStudent), expected: KindTranscription},
		{name: "audio response", event: NewAudioResponse([]byte{1}, roles.Welcomer), expected: KindAudioResponse},
		{name: "voice mode changed", event: NewVoiceModeChanged(false), expected: KindVoiceModeChanged},
		{name: "error", event: NewError("oops"), expected: KindError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestAgentChangedWireFormat(t *testing.T) {
	info := roles.Info{Name: "Question Presenter", Avatar: "📚", Description: "Here's your problem...", Role: "Problem presentation"}
	payload, err := json.Marshal(NewAgentChanged(roles.Welcomer, roles.QuestionPresenter, info))
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if decoded["previousAgent"] != "welcomer" || decoded["currentAgent"] != "question-presenter" {
		t.Fatalf("unexpected payload %s", payload)
	}
	agentInfo, ok := decoded["agentInfo"].(map[string]any)
	if !ok || agentInfo["name"] != "Question Presenter" || agentInfo["avatar"] != "📚" {
		t.Fatalf("unexpected agent info in %s", payload)
	}
}

func TestAgentResponseCarriesTimestamp(t *testing.T) {
	event := NewAgentResponse("hi", roles.Welcomer, roles.Info{})
	if !event.At.Equal(event.Timestamp()) {
		t.Fatalf("expected payload timestamp to match event timestamp")
	}
}

func TestSchemaCoversPayloadKinds(t *testing.T) {
	schemas := Schema()

	for _, kind := range []Kind{KindUserMessage, KindToggleVoiceMode, KindAgentResponse, KindError} {
		schema, ok := schemas[kind]
		if !ok {
			t.Fatalf("expected schema for %q", kind)
		}
		if schema.Title != string(kind) {
			t.Fatalf("expected schema title %q, got %q", kind, schema.Title)
		}
	}
	if _, ok := schemas[KindStartSession]; ok {
		t.Fatalf("expected start-session to have no payload schema")
	}

	userMessage := schemas[KindUserMessage]
	if _, ok := userMessage.Properties.Get("text"); !ok {
		t.Fatalf("expected user-message schema to describe text")
	}
}

func TestIsInbound(t *testing.T) {
	if !IsInbound(KindUserMessage) || IsInbound(KindAgentResponse) {
		t.Fatalf("unexpected inbound classification")
	}
}

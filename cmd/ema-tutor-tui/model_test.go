package main

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-tutor/core/events"
	"github.com/koscakluka/ema-tutor/core/roles"
)

type sentEvent struct {
	kind events.Kind
	data any
}

type senderStub struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (s *senderStub) SendEvent(kind events.Kind, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEvent{kind: kind, data: data})
	return nil
}

type voiceStub struct {
	capturing bool
	played    [][]byte
	cleared   int
}

func (v *voiceStub) StartCapture() error { v.capturing = true; return nil }
func (v *voiceStub) StopCapture() error  { v.capturing = false; return nil }
func (v *voiceStub) Play(chunk []byte)   { v.played = append(v.played, chunk) }
func (v *voiceStub) ClearPlayback()      { v.cleared++ }

func serverEvent(t *testing.T, event events.Event) serverEventMsg {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to encode event: %v", err)
	}
	return serverEventMsg{Event: event.Kind(), Data: data}
}

func update(m model, msg tea.Msg) (model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

// runCmd executes a command and any commands it batches.
func runCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	if batch, ok := cmd().(tea.BatchMsg); ok {
		for _, inner := range batch {
			runCmd(inner)
		}
	}
}

func TestEnterSendsUserMessage(t *testing.T) {
	sender := &senderStub{}
	m := newModel(sender, nil)
	m.input.SetValue("  I'm in grade 3 ")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(cmd)

	if len(sender.sent) != 1 || sender.sent[0].kind != events.KindUserMessage {
		t.Fatalf("expected a user message, got %+v", sender.sent)
	}
	if message := sender.sent[0].data.(events.UserMessage); message.Text != "I'm in grade 3" {
		t.Fatalf("expected trimmed text, got %q", message.Text)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected the input to be cleared")
	}
	if len(m.entries) != 1 || m.entries[0].speaker != "You" {
		t.Fatalf("expected the reply to be shown, got %+v", m.entries)
	}
}

func TestEmptyEnterSendsNothing(t *testing.T) {
	sender := &senderStub{}
	m := newModel(sender, nil)

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(cmd)

	if len(sender.sent) != 0 {
		t.Fatalf("expected nothing to be sent, got %+v", sender.sent)
	}
}

func TestAgentEventsUpdateTranscript(t *testing.T) {
	m := newModel(&senderStub{}, nil)
	info := roles.Info{Name: "Question Presenter", Avatar: "📚", Description: "Presents problems"}

	m, _ = update(m, serverEvent(t, events.NewAgentChanged(roles.Welcomer, roles.QuestionPresenter, info)))
	m, _ = update(m, serverEvent(t, events.NewAgentResponse("What is 15 + 27?", roles.QuestionPresenter, info)))

	if m.agent != "Question Presenter" || m.avatar != "📚" {
		t.Fatalf("expected the header to follow the active role, got %q %q", m.agent, m.avatar)
	}
	last := m.entries[len(m.entries)-1]
	if last.text != "What is 15 + 27?" || !strings.Contains(last.speaker, "Question Presenter") {
		t.Fatalf("unexpected entry %+v", last)
	}
	if !strings.Contains(m.View(), "Question Presenter") {
		t.Fatalf("expected the view to name the role")
	}
}

func TestVoiceModeChangesDriveMicrophone(t *testing.T) {
	local := &voiceStub{}
	m := newModel(&senderStub{}, local)

	m, _ = update(m, serverEvent(t, events.NewVoiceModeChanged(true)))
	if !local.capturing || !m.voiceEnabled {
		t.Fatalf("expected capture to start")
	}

	m, _ = update(m, serverEvent(t, events.NewAudioResponse([]byte{1, 2}, roles.Welcomer)))
	if len(local.played) != 1 || string(local.played[0]) != string([]byte{1, 2}) {
		t.Fatalf("expected audio to be played, got %v", local.played)
	}

	m, _ = update(m, serverEvent(t, events.NewVoiceModeChanged(false)))
	if local.capturing || m.voiceEnabled || local.cleared != 1 {
		t.Fatalf("expected capture to stop and playback to clear")
	}
}

func TestToggleWithoutMicrophoneExplains(t *testing.T) {
	sender := &senderStub{}
	m := newModel(sender, nil)

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlV})
	runCmd(cmd)

	if len(sender.sent) != 0 {
		t.Fatalf("expected no toggle to be sent, got %+v", sender.sent)
	}
	if len(m.entries) != 1 || !strings.Contains(m.entries[0].text, "-voice") {
		t.Fatalf("expected a hint, got %+v", m.entries)
	}
}

func TestEscapeEndsSession(t *testing.T) {
	sender := &senderStub{}
	m := newModel(sender, nil)

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.quitting || cmd == nil {
		t.Fatalf("expected the client to quit")
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-tutor/core/events"
	"github.com/muesli/reflow/wordwrap"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Padding(0, 1)
	roleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	learnerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	systemStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type eventSender interface {
	SendEvent(kind events.Kind, data any) error
}

// voice is the local microphone and speaker, absent when voice is off.
type voice interface {
	StartCapture() error
	StopCapture() error
	Play(chunk []byte)
	ClearPlayback()
}

type entry struct {
	speaker string
	text    string
	style   lipgloss.Style
}

type model struct {
	sender eventSender
	voice  voice

	viewport viewport.Model
	input    textinput.Model
	entries  []entry

	agent        string
	avatar       string
	voiceEnabled bool
	ready        bool
	quitting     bool
	width        int
}

func newModel(sender eventSender, voice voice) model {
	input := textinput.New()
	input.Placeholder = "Type a reply and press enter"
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	return model{
		sender:   sender,
		voice:    voice,
		input:    input,
		viewport: viewport.New(80, 20),
		agent:    "Connecting",
		width:    80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.send(events.KindStartSession, nil))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(m.send(events.KindEndSession, nil), tea.Quit)
		case "ctrl+v":
			if m.voice == nil {
				m.appendEntry(entry{text: "Voice mode needs a microphone; start with -voice.", style: systemStyle})
				return m, nil
			}
			return m, m.send(events.KindToggleVoiceMode, events.ToggleVoiceMode{Enabled: !m.voiceEnabled})
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.appendEntry(entry{speaker: "You", text: text, style: learnerStyle})
			return m, m.send(events.KindUserMessage, events.UserMessage{Text: text})
		}

	case serverEventMsg:
		m.handleEvent(msg)

	case disconnectedMsg:
		if msg.err != nil {
			m.appendEntry(entry{text: "Disconnected: " + msg.err.Error(), style: errorStyle})
		}
		return m, tea.Quit

	case sendFailedMsg:
		m.appendEntry(entry{text: "Could not reach the tutor: " + msg.err.Error(), style: errorStyle})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) handleEvent(msg serverEventMsg) {
	switch msg.Event {
	case events.KindSessionStarted:
		var started events.SessionStarted
		if decode(msg, &started) {
			m.agent = string(started.CurrentAgent)
		}
	case events.KindAgentChanged:
		var changed events.AgentChanged
		if decode(msg, &changed) {
			m.agent, m.avatar = changed.AgentInfo.Name, changed.AgentInfo.Avatar
			m.appendEntry(entry{text: fmt.Sprintf("%s %s joined: %s", changed.AgentInfo.Avatar, changed.AgentInfo.Name, changed.AgentInfo.Description), style: systemStyle})
		}
	case events.KindAgentResponse:
		var response events.AgentResponse
		if decode(msg, &response) {
			m.agent, m.avatar = response.AgentInfo.Name, response.AgentInfo.Avatar
			m.appendEntry(entry{speaker: strings.TrimSpace(response.AgentInfo.Avatar + " " + response.AgentInfo.Name), text: response.Text, style: roleStyle})
		}
	case events.KindTranscription:
		var transcript events.Transcription
		if decode(msg, &transcript) && transcript.Speaker == events.SpeakerStudent {
			m.appendEntry(entry{speaker: "You (spoken)", text: transcript.Text, style: learnerStyle})
		}
	case events.KindAudioResponse:
		var audio events.AudioResponse
		if decode(msg, &audio) && m.voice != nil && m.voiceEnabled {
			m.voice.Play(audio.AudioData)
		}
	case events.KindVoiceModeChanged:
		var changed events.VoiceModeChanged
		if decode(msg, &changed) {
			m.setVoice(changed.Enabled)
		}
	case events.KindError:
		var failure events.Error
		if decode(msg, &failure) {
			m.appendEntry(entry{text: failure.Message, style: errorStyle})
		}
	case events.KindSessionEnded:
		m.appendEntry(entry{text: "Session ended.", style: systemStyle})
	}
}

func (m *model) setVoice(enabled bool) {
	m.voiceEnabled = enabled
	if m.voice == nil {
		return
	}

	var err error
	if enabled {
		err = m.voice.StartCapture()
	} else {
		m.voice.ClearPlayback()
		err = m.voice.StopCapture()
	}
	if err != nil {
		m.appendEntry(entry{text: "Microphone error: " + err.Error(), style: errorStyle})
	}
}

func (m *model) appendEntry(e entry) {
	m.entries = append(m.entries, e)
	m.refresh()
}

func (m *model) refresh() {
	width := max(m.width-2, 20)
	var b strings.Builder
	for _, e := range m.entries {
		text := e.text
		if e.speaker != "" {
			text = e.speaker + ": " + text
		}
		b.WriteString(e.style.Render(wordwrap.String(text, width)))
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	voiceState := "text"
	if m.voiceEnabled {
		voiceState = "voice"
	}
	header := headerStyle.Render(fmt.Sprintf("%s %s · %s", m.avatar, m.agent, voiceState))
	help := helpStyle.Render("enter send · ctrl+v voice · esc quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), m.input.View(), help)
}

type sendFailedMsg struct{ err error }

func (m model) send(kind events.Kind, data any) tea.Cmd {
	sender := m.sender
	return func() tea.Msg {
		if err := sender.SendEvent(kind, data); err != nil {
			return sendFailedMsg{err: err}
		}
		return nil
	}
}

func decode(msg serverEventMsg, target any) bool {
	return len(msg.Data) > 0 && json.Unmarshal(msg.Data, target) == nil
}

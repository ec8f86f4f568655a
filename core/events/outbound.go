package events

import (
	"time"

	"github.com/koscakluka/ema-tutor/core/roles"
)

const (
	KindSessionStarted   Kind = "session-started"
	KindSessionEnded     Kind = "session-ended"
	KindAgentChanged     Kind = "agent-changed"
	KindAgentResponse    Kind = "agent-response"
	KindTranscription    Kind = "transcription"
	KindAudioResponse    Kind = "audio-response"
	KindVoiceModeChanged Kind = "voice-mode-changed"
	KindError            Kind = "error"
)

// SpeakerStudent marks learner transcripts.
const SpeakerStudent = "student"

type SessionStarted struct {
	Base
	SessionID    string   `json:"sessionId"`
	CurrentAgent roles.ID `json:"currentAgent"`
}

func NewSessionStarted(sessionID string, currentAgent roles.ID) SessionStarted {
	return SessionStarted{Base: NewBase(KindSessionStarted), SessionID: sessionID, CurrentAgent: currentAgent}
}

type SessionEnded struct {
	Base
	SessionID string `json:"sessionId"`
}

func NewSessionEnded(sessionID string) SessionEnded {
	return SessionEnded{Base: NewBase(KindSessionEnded), SessionID: sessionID}
}

type AgentChanged struct {
	Base
	PreviousAgent roles.ID   `json:"previousAgent"`
	CurrentAgent  roles.ID   `json:"currentAgent"`
	AgentInfo     roles.Info `json:"agentInfo"`
}

func NewAgentChanged(previous, current roles.ID, info roles.Info) AgentChanged {
	return AgentChanged{Base: NewBase(KindAgentChanged), PreviousAgent: previous, CurrentAgent: current, AgentInfo: info}
}

type AgentResponse struct {
	Base
	Text      string     `json:"text"`
	Agent     roles.ID   `json:"agent"`
	AgentInfo roles.Info `json:"agentInfo"`
	At        time.Time  `json:"timestamp"`
}

func NewAgentResponse(text string, agent roles.ID, info roles.Info) AgentResponse {
	base := NewBase(KindAgentResponse)
	return AgentResponse{Base: base, Text: text, Agent: agent, AgentInfo: info, At: base.Timestamp()}
}

type Transcription struct {
	Base
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

func NewTranscription(text, speaker string) Transcription {
	return Transcription{Base: NewBase(KindTranscription), Text: text, Speaker: speaker}
}

type AudioResponse struct {
	Base
	AudioData []byte   `json:"audioData"`
	Agent     roles.ID `json:"agent"`
}

func NewAudioResponse(audio []byte, agent roles.ID) AudioResponse {
	return AudioResponse{Base: NewBase(KindAudioResponse), AudioData: audio, Agent: agent}
}

type VoiceModeChanged struct {
	Base
	Enabled bool `json:"enabled"`
}

func NewVoiceModeChanged(enabled bool) VoiceModeChanged {
	return VoiceModeChanged{Base: NewBase(KindVoiceModeChanged), Enabled: enabled}
}

type Error struct {
	Base
	Message string `json:"message"`
}

func NewError(message string) Error {
	return Error{Base: NewBase(KindError), Message: message}
}

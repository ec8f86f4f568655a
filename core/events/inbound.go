package events

const (
	KindStartSession    Kind = "start-session"
	KindEndSession      Kind = "end-session"
	KindUserMessage     Kind = "user-message"
	KindAudioData       Kind = "audio-data"
	KindToggleVoiceMode Kind = "toggle-voice-mode"
)

type UserMessage struct {
	Text string `json:"text" jsonschema:"description=Typed learner utterance"`
}

type AudioData struct {
	Bytes []byte `json:"bytes" jsonschema:"description=Raw audio chunk in the session encoding"`
}

type ToggleVoiceMode struct {
	Enabled bool `json:"enabled"`
}

// IsInbound reports whether kind is accepted from clients.
func IsInbound(kind Kind) bool {
	switch kind {
	case KindStartSession, KindEndSession, KindUserMessage, KindAudioData, KindToggleVoiceMode:
		return true
	}
	return false
}

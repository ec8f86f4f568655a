package events

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

var payloadTypes = map[Kind]reflect.Type{
	KindUserMessage:      reflect.TypeFor[UserMessage](),
	KindAudioData:        reflect.TypeFor[AudioData](),
	KindToggleVoiceMode:  reflect.TypeFor[ToggleVoiceMode](),
	KindSessionStarted:   reflect.TypeFor[SessionStarted](),
	KindSessionEnded:     reflect.TypeFor[SessionEnded](),
	KindAgentChanged:     reflect.TypeFor[AgentChanged](),
	KindAgentResponse:    reflect.TypeFor[AgentResponse](),
	KindTranscription:    reflect.TypeFor[Transcription](),
	KindAudioResponse:    reflect.TypeFor[AudioResponse](),
	KindVoiceModeChanged: reflect.TypeFor[VoiceModeChanged](),
	KindError:            reflect.TypeFor[Error](),
}

// Schema describes the JSON payload of every event kind that carries one.
// start-session and end-session have no payload.
func Schema() map[Kind]*jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}

	schemas := make(map[Kind]*jsonschema.Schema, len(payloadTypes))
	for kind, payloadType := range payloadTypes {
		schema := reflector.ReflectFromType(payloadType)
		schema.Title = string(kind)
		schemas[kind] = schema
	}
	return schemas
}

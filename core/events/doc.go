// Package events defines the tutoring protocol exchanged between a client
// and the orchestrator.
//
// Every event has a Kind, which is also its name on the wire, and a payload
// serialized as JSON.
//
// Inbound (client to orchestrator)
//
//   - start-session: open a session for the connection.
//   - end-session: end the session explicitly.
//   - user-message{text}: typed learner utterance.
//   - audio-data{bytes}: raw learner audio chunk. Transports may carry it as
//     a binary frame instead.
//   - toggle-voice-mode{enabled}: turn audio forwarding on or off.
//
// Outbound (orchestrator to client)
//
//   - session-started{currentAgent}
//   - session-ended
//   - agent-changed{previousAgent, currentAgent, agentInfo}
//   - agent-response{text, agent, agentInfo, timestamp}
//   - transcription{text, speaker}: learner transcripts use speaker
//     "student", role speech uses the role id.
//   - audio-response{audioData, agent}: synthesized role audio.
//   - voice-mode-changed{enabled}
//   - error{message}: recoverable, the session stays usable.
package events

// Package speech defines the speech provider contract used by the audio
// conduit: one connection per active role, carrying learner audio in and
// transcripts and synthesized role audio out.
package speech

import (
	"context"
	"errors"
)

var ErrConnectionClosed = errors.New("speech connection closed")

// Provider opens speech connections for a voice profile.
type Provider interface {
	Connect(ctx context.Context, voice string, opts ...ConnectOption) (Connection, error)
}

// Connection is a live speech session for a single voice.
//
// SendAudio forwards an opaque chunk to recognition, Speak synthesizes text
// in the connection's voice. Results are delivered through the callbacks
// passed to Connect. Close is idempotent.
type Connection interface {
	SendAudio(chunk []byte) error
	Speak(ctx context.Context, text string) error
	Close() error
}

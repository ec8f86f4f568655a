package orchestration

import "github.com/koscakluka/ema-tutor/core/events"

// Transport delivers outbound events to the client owning a session.
// Implementations must be safe for concurrent use.
type Transport interface {
	Emit(event events.Event) error
}

// TransportFunc adapts a function to a Transport.
type TransportFunc func(event events.Event) error

func (f TransportFunc) Emit(event events.Event) error {
	return f(event)
}

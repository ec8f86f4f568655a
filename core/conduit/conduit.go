// Package conduit implements the per-session audio multiplexer: the single
// forwarding path from learner audio to the speech connection of whichever
// role is active.
//
// A Multiplexer owns at most one attached speech connection at a time. A new
// role's connection is dialled on the side and attached in one step that
// closes the old one. During a switch the caller holds pushes, which are kept
// in arrival order until it releases them. Every chunk therefore reaches
// exactly one role.
package conduit

import (
	"context"
	"errors"
	"sync"

	"github.com/koscakluka/ema-tutor/core/audio"
	"github.com/koscakluka/ema-tutor/core/roles"
	"github.com/koscakluka/ema-tutor/core/speech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNoProvider = errors.New("no speech provider configured")
	ErrClosed     = errors.New("conduit closed")
)

// Delivery describes what happened to a pushed chunk.
type Delivery string

const (
	Forwarded Delivery = "forwarded"
	Held      Delivery = "held"
	Dropped   Delivery = "dropped"
)

// Callbacks receive provider events tagged with the role whose connection
// produced them. Events from a connection that has since been replaced are
// never delivered.
type Callbacks struct {
	OnTranscript  func(role roles.ID, transcript string)
	OnSpeechAudio func(role roles.ID, audio []byte)
	OnError       func(role roles.ID, err error)
}

type Multiplexer struct {
	provider  speech.Provider
	encoding  audio.EncodingInfo
	callbacks Callbacks
	attrs     []attribute.KeyValue

	mu      sync.Mutex
	current *Link
	role    roles.ID
	holding bool
	held    [][]byte
	closed  bool
}

type Option func(*Multiplexer)

func WithEncodingInfo(encoding audio.EncodingInfo) Option {
	return func(m *Multiplexer) {
		m.encoding = encoding
	}
}

func WithCallbacks(callbacks Callbacks) Option {
	return func(m *Multiplexer) {
		m.callbacks = callbacks
	}
}

// WithAttributes adds attributes to the conduit's spans and metrics, usually
// the session id.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(m *Multiplexer) {
		m.attrs = append(m.attrs, attrs...)
	}
}

func New(provider speech.Provider, opts ...Option) *Multiplexer {
	m := &Multiplexer{
		provider: provider,
		encoding: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.callbacks.OnTranscript == nil {
		m.callbacks.OnTranscript = func(roles.ID, string) {}
	}
	if m.callbacks.OnSpeechAudio == nil {
		m.callbacks.OnSpeechAudio = func(roles.ID, []byte) {}
	}
	if m.callbacks.OnError == nil {
		m.callbacks.OnError = func(roles.ID, error) {}
	}
	return m
}

// Link is a dialled speech connection for one role. It receives no audio
// until it is attached.
type Link struct {
	role roles.ID
	conn speech.Connection
}

// Discard closes a link that was never attached.
func (l *Link) Discard() {
	if err := l.conn.Close(); err != nil {
		logger.Warn("failed to close unused speech connection", "role", l.role, "error", err)
	}
}

// Dial connects to role's voice without touching the current connection.
// Events from the link are dropped until it is attached.
func (m *Multiplexer) Dial(ctx context.Context, role roles.ID, voice string) (*Link, error) {
	ctx, span := tracer.Start(ctx, "dial conduit", trace.WithAttributes(append([]attribute.KeyValue{
		attribute.String("role", string(role)),
		attribute.String("speech.voice", voice),
	}, m.attrs...)...))
	defer span.End()

	if m.isClosed() {
		return nil, ErrClosed
	}
	if m.provider == nil {
		return nil, ErrNoProvider
	}

	link := &Link{role: role}
	conn, err := m.provider.Connect(ctx, voice,
		speech.WithEncodingInfo(m.encoding),
		speech.WithTranscriptionCallback(func(transcript string) {
			if m.isCurrent(link) {
				m.callbacks.OnTranscript(role, transcript)
			}
		}),
		speech.WithSpeechAudioCallback(func(audio []byte) {
			if m.isCurrent(link) {
				m.callbacks.OnSpeechAudio(role, audio)
			}
		}),
		speech.WithErrorCallback(func(err error) {
			if m.isCurrent(link) {
				m.callbacks.OnError(role, err)
			}
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect")
		return nil, err
	}
	link.conn = conn
	return link, nil
}

// Hold keeps chunks pushed from now on, in arrival order, until Release.
// The current connection hears nothing more while the hold lasts.
func (m *Multiplexer) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.holding = true
	}
}

// Attach makes link the conduit's connection, closing the previous one. A
// hold in progress carries over to the new connection. The link is discarded
// when the conduit has been closed.
func (m *Multiplexer) Attach(link *Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		link.Discard()
		return ErrClosed
	}
	// The old connection has already been handed every chunk pushed before
	// this point, since SendAudio runs under the same lock.
	m.closeConnLocked()
	m.current = link
	m.role = link.role
	return nil
}

// Release ends the hold started by Hold, forwarding held chunks in
// arrival order. Without a connection they are dropped.
func (m *Multiplexer) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.holding {
		return
	}
	m.holding = false
	held := m.held
	m.held = nil

	for _, chunk := range held {
		m.forwardLocked(context.Background(), chunk)
	}
}

// Push delivers chunk to the active role's connection, holds it while a
// switch is in progress or drops it when nothing is connected.
func (m *Multiplexer) Push(ctx context.Context, chunk []byte) (Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.record(ctx, Dropped)
		return Dropped, ErrClosed
	}
	if m.holding {
		m.held = append(m.held, chunk)
		m.record(ctx, Held)
		return Held, nil
	}
	return m.forwardLocked(ctx, chunk)
}

func (m *Multiplexer) forwardLocked(ctx context.Context, chunk []byte) (Delivery, error) {
	if m.current == nil {
		m.record(ctx, Dropped)
		return Dropped, nil
	}
	if err := m.current.conn.SendAudio(chunk); err != nil {
		m.record(ctx, Dropped)
		logger.Warn("failed to forward audio", "role", m.role, "error", err)
		return Dropped, err
	}
	m.record(ctx, Forwarded)
	forwardedAudio.Add(ctx, m.encoding.Duration(len(chunk)).Seconds(), metric.WithAttributes(m.attrs...))
	return Forwarded, nil
}

func (m *Multiplexer) record(ctx context.Context, delivery Delivery) {
	audioChunks.Add(ctx, 1, metric.WithAttributes(append([]attribute.KeyValue{
		attribute.String("result", string(delivery)),
	}, m.attrs...)...))
}

// Speak synthesizes text with the active role's voice.
func (m *Multiplexer) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	current := m.current
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if current == nil {
		return speech.ErrConnectionClosed
	}
	return current.conn.Speak(ctx, text)
}

// Disconnect closes the current connection but leaves the conduit usable for
// a later Attach.
func (m *Multiplexer) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeConnLocked()
	m.holding = false
	m.held = nil
}

// Close tears the conduit down for good. It is idempotent.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.closeConnLocked()
	m.holding = false
	m.held = nil
}

// Role reports the role the conduit was last attached to.
func (m *Multiplexer) Role() roles.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.role
}

func (m *Multiplexer) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

func (m *Multiplexer) isCurrent(link *Link) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.current == link
}

func (m *Multiplexer) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Multiplexer) closeConnLocked() {
	if m.current == nil {
		return
	}
	if err := m.current.conn.Close(); err != nil {
		logger.Warn("failed to close speech connection", "role", m.role, "error", err)
	}
	m.current = nil
}

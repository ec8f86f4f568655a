// Package orchestration routes a tutoring conversation between a learner and
// a fixed set of conversational roles.
//
// The Orchestrator owns session lifecycle. Inbound events are turned into
// jobs on the session's worker, so all changes to a session's role, context
// and conduit happen one at a time, while audio chunks go straight to the
// session's conduit.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-tutor/core/audio"
	"github.com/koscakluka/ema-tutor/core/conduit"
	"github.com/koscakluka/ema-tutor/core/events"
	"github.com/koscakluka/ema-tutor/core/llms"
	"github.com/koscakluka/ema-tutor/core/roles"
	"github.com/koscakluka/ema-tutor/core/speech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Orchestrator struct {
	roles    *roles.Registry
	sessions *SessionRegistry

	llm    llms.Generator
	speech speech.Provider

	providerTimeout time.Duration
	voiceDefault    bool
	encoding        audio.EncodingInfo
	now             func() time.Time
	baseContext     context.Context

	closeOnce sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		providerTimeout: defaultProviderTimeout,
		voiceDefault:    true,
		encoding:        audio.GetDefaultEncodingInfo(),
		now:             time.Now,
		baseContext:     context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.roles == nil {
		o.roles = roles.DefaultRegistry()
	}
	if o.sessions == nil {
		o.sessions = NewSessionRegistry()
	}
	return o
}

// Roles returns the role registry sessions are routed through.
func (o *Orchestrator) Roles() *roles.Registry {
	return o.roles
}

// StartSession registers a session for id, sends session-started and queues
// the welcomer's opening turn. Voice mode is attempted when a speech provider
// is configured; a connect failure degrades the session to text.
func (o *Orchestrator) StartSession(ctx context.Context, id string, transport Transport) (*Session, error) {
	ctx, span := tracer.Start(ctx, "start session", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	if !o.roles.Has(roles.Welcomer) {
		err := fmt.Errorf("initial role: %w", roles.ErrUnknownRole)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	mux := conduit.New(o.speech,
		conduit.WithEncodingInfo(o.encoding),
		conduit.WithAttributes(attribute.String("session.id", id)),
		conduit.WithCallbacks(conduit.Callbacks{
			OnTranscript:  func(role roles.ID, transcript string) { o.handleTranscript(id, role, transcript) },
			OnSpeechAudio: func(role roles.ID, audio []byte) { o.handleSpeechAudio(id, role, audio) },
			OnError:       func(role roles.ID, err error) { o.handleSpeechError(id, role, err) },
		}),
	)

	session, err := o.sessions.Create(id, transport,
		withConduit(mux),
		withVoiceMode(o.voiceDefault && o.speech != nil),
		withStartTime(o.now()),
		withBaseContext(o.baseContext),
	)
	if err != nil {
		mux.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create session")
		logger.Error("failed to create session", "session_id", id, "error", err)
		return nil, err
	}

	activeSessions.Add(ctx, 1)
	logger.Info("session created", "session_id", id, "voice_mode", session.VoiceModeEnabled())

	session.enqueue("start session", func(ctx context.Context) {
		o.startSession(ctx, session)
	})
	return session, nil
}

func (o *Orchestrator) startSession(ctx context.Context, session *Session) {
	ctx, span := tracer.Start(ctx, "open session", trace.WithAttributes(attribute.String("session.id", session.id)))
	defer span.End()

	welcomer, err := o.roles.Get(roles.Welcomer)
	if err != nil {
		o.reportFailure(ctx, session, err)
		return
	}

	session.emit(events.NewSessionStarted(session.id, welcomer.ID))

	if session.VoiceModeEnabled() {
		if err := o.openVoice(ctx, session, welcomer); err != nil {
			o.degradeVoice(ctx, session, err)
		}
	}

	o.startConversation(ctx, session, welcomer, "", "")
}

// EndSession ends the session on the client's request, sending
// session-ended before tearing it down.
func (o *Orchestrator) EndSession(ctx context.Context, id string) error {
	session, err := o.sessions.Get(id)
	if err != nil {
		logger.Warn("end requested for unknown session", "session_id", id)
		return err
	}

	session.send(events.NewSessionEnded(id))
	o.destroy(ctx, id)
	return nil
}

// Disconnect tears down the session of a client whose transport went away.
// It is a no-op when the session has already ended.
func (o *Orchestrator) Disconnect(ctx context.Context, id string) {
	o.destroy(ctx, id)
}

func (o *Orchestrator) destroy(ctx context.Context, id string) {
	session, tornDown := o.sessions.Destroy(id)
	if !tornDown {
		return
	}

	activeSessions.Add(ctx, -1)
	logger.Info("session ended", "session_id", id, "duration", session.duration(o.now()).String())
}

// HandleUserMessage queues a typed learner utterance. Typed input is
// accepted whether or not voice mode is enabled.
func (o *Orchestrator) HandleUserMessage(ctx context.Context, id string, text string) error {
	session, err := o.sessions.Get(id)
	if err != nil {
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if !session.enqueue("user message", func(ctx context.Context) {
		o.processUtterance(ctx, session, text)
	}) {
		return ErrSessionClosed
	}
	return nil
}

// HandleAudio forwards a learner audio chunk to the active role's speech
// connection. Chunks are dropped without error while voice mode is off.
func (o *Orchestrator) HandleAudio(ctx context.Context, id string, chunk []byte) error {
	session, err := o.sessions.Get(id)
	if err != nil {
		return err
	}

	if !session.VoiceModeEnabled() {
		logger.Debug("dropping audio, voice mode disabled", "session_id", id)
		return nil
	}

	delivery, err := session.mux.Push(ctx, chunk)
	if err != nil {
		logger.Debug("dropping audio", "session_id", id, "error", err)
		return nil
	}
	if delivery == conduit.Dropped {
		logger.Debug("dropping audio, no open conduit", "session_id", id)
	}
	return nil
}

// ToggleVoiceMode turns audio forwarding on or off. Turning it off stops
// forwarding before the request is queued; turning it on connects the active
// role's voice once the worker gets to it, and a failure leaves the session
// text-only.
func (o *Orchestrator) ToggleVoiceMode(ctx context.Context, id string, enabled bool) error {
	session, err := o.sessions.Get(id)
	if err != nil {
		return err
	}

	session.mu.Lock()
	request := session.voiceToggles.Add(1)
	if !enabled {
		session.voiceModeEnabled.Store(false)
	}
	session.mu.Unlock()

	if !session.enqueue("toggle voice mode", func(ctx context.Context) {
		o.toggleVoiceMode(ctx, session, enabled, request)
	}) {
		return ErrSessionClosed
	}
	return nil
}

func (o *Orchestrator) toggleVoiceMode(ctx context.Context, session *Session, enabled bool, request uint64) {
	ctx, span := tracer.Start(ctx, "toggle voice mode", trace.WithAttributes(
		attribute.String("session.id", session.id),
		attribute.Bool("voice.enabled", enabled),
	))
	defer span.End()

	if !enabled {
		session.mu.Lock()
		session.voiceModeEnabled.Store(false)
		session.mux.Disconnect()
		session.mu.Unlock()
		session.emit(events.NewVoiceModeChanged(false))
		return
	}

	if session.VoiceModeEnabled() {
		session.emit(events.NewVoiceModeChanged(true))
		return
	}

	role, err := o.roles.Get(session.ActiveRole())
	var link *conduit.Link
	if err == nil {
		link, err = o.dialVoice(ctx, session, role)
	}
	superseded := session.voiceToggles.Load() != request
	if err != nil {
		if !superseded {
			o.degradeVoice(ctx, session, err)
		}
		return
	}

	session.mu.Lock()
	superseded = session.voiceToggles.Load() != request
	if !superseded {
		err = session.mux.Attach(link)
		if err == nil {
			session.voiceModeEnabled.Store(true)
		}
	}
	session.mu.Unlock()

	if superseded {
		logger.Debug("voice toggle superseded", "session_id", session.id)
		link.Discard()
		return
	}
	if err != nil {
		o.degradeVoice(ctx, session, fmt.Errorf("%w: %w", ErrVoiceUnavailable, err))
		return
	}
	session.emit(events.NewVoiceModeChanged(true))
}

// Wait blocks until every job queued for the session so far has run.
func (o *Orchestrator) Wait(ctx context.Context, id string) error {
	session, err := o.sessions.Get(id)
	if err != nil {
		return err
	}
	return session.barrier(ctx)
}

// Close ends every session.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		for _, session := range o.sessions.List() {
			o.destroy(context.Background(), session.id)
		}
	})
}

func (o *Orchestrator) handleTranscript(id string, role roles.ID, transcript string) {
	session, err := o.sessions.Get(id)
	if err != nil {
		return
	}

	logger.Debug("transcript received", "session_id", id, "role", role)
	session.enqueue("transcript", func(ctx context.Context) {
		session.emit(events.NewTranscription(transcript, events.SpeakerStudent))
		o.processUtterance(ctx, session, transcript)
	})
}

func (o *Orchestrator) handleSpeechAudio(id string, role roles.ID, audio []byte) {
	session, err := o.sessions.Get(id)
	if err != nil {
		return
	}
	session.emit(events.NewAudioResponse(audio, role))
}

func (o *Orchestrator) handleSpeechError(id string, role roles.ID, err error) {
	session, getErr := o.sessions.Get(id)
	if getErr != nil {
		return
	}

	session.enqueue("speech error", func(ctx context.Context) {
		if !session.VoiceModeEnabled() || session.ActiveRole() != role {
			return
		}
		session.mu.Lock()
		session.mux.Disconnect()
		session.mu.Unlock()
		o.degradeVoice(ctx, session, err)
	})
}

// SessionSnapshot is a point-in-time copy of a session's state.
type SessionSnapshot struct {
	ID               string         `json:"id"`
	ActiveRole       roles.ID       `json:"activeRole"`
	VoiceModeEnabled bool           `json:"voiceModeEnabled"`
	ConduitRole      roles.ID       `json:"conduitRole,omitempty"`
	Context          SessionContext `json:"context"`
	Duration         string         `json:"duration"`
}

// Snapshot returns a deep copy of the session's state for diagnostics.
func (o *Orchestrator) Snapshot(id string) (SessionSnapshot, error) {
	session, err := o.sessions.Get(id)
	if err != nil {
		return SessionSnapshot{}, err
	}

	session.mu.RLock()
	defer session.mu.RUnlock()

	snapshot := SessionSnapshot{
		ID:               session.id,
		ActiveRole:       session.activeRole,
		VoiceModeEnabled: session.VoiceModeEnabled(),
		Duration:         o.now().Sub(session.context.StartedAt).Round(time.Second).String(),
	}
	if session.mux.Connected() {
		snapshot.ConduitRole = session.mux.Role()
	}
	if err := copier.CopyWithOption(&snapshot.Context, &session.context, copier.Option{DeepCopy: true}); err != nil {
		return SessionSnapshot{}, fmt.Errorf("failed to copy session context: %w", err)
	}
	return snapshot, nil
}

type Stats struct {
	ActiveSessions int `json:"activeSessions"`
	TotalAgents    int `json:"totalAgents"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{ActiveSessions: o.sessions.Len(), TotalAgents: o.roles.Len()}
}

// openVoice connects role's voice and attaches it to the session's conduit.
func (o *Orchestrator) openVoice(ctx context.Context, session *Session, role *roles.Role) error {
	link, err := o.dialVoice(ctx, session, role)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if err := session.mux.Attach(link); err != nil {
		return fmt.Errorf("%w: %w", ErrVoiceUnavailable, err)
	}
	return nil
}

// dialVoice runs without the session lock so that snapshots are not held up
// by a slow provider.
func (o *Orchestrator) dialVoice(ctx context.Context, session *Session, role *roles.Role) (*conduit.Link, error) {
	ctx, cancel := o.withProviderTimeout(ctx)
	defer cancel()

	link, err := session.mux.Dial(ctx, role.ID, role.Voice)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVoiceUnavailable, err)
	}
	return link, nil
}

// degradeVoice drops the session to text-only mode and tells the client.
func (o *Orchestrator) degradeVoice(ctx context.Context, session *Session, err error) {
	if session.isClosed() {
		return
	}

	session.voiceModeEnabled.Store(false)
	voiceDegradations.Add(ctx, 1)
	trace.SpanFromContext(ctx).RecordError(err)
	logger.Warn("voice mode degraded", "session_id", session.id, "error", err)

	session.emit(events.NewVoiceModeChanged(false))
	session.emit(events.NewError(voiceUnavailableErrorMessage))
}

// reportFailure logs a failed turn and sends a recoverable error. Failures of
// a session that has been torn down are discarded.
func (o *Orchestrator) reportFailure(ctx context.Context, session *Session, err error) {
	if session.isClosed() || errors.Is(err, context.Canceled) {
		return
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	logger.Error("turn failed", "session_id", session.id, "role", session.ActiveRole(), "error", err)

	session.emit(events.NewError(genericErrorMessage))
}

func (o *Orchestrator) withProviderTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.providerTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.providerTimeout)
}

func (o *Orchestrator) recordTransition(ctx context.Context, from, to roles.ID) {
	roleTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-tutor/core/conduit"
	"github.com/koscakluka/ema-tutor/core/events"
	"github.com/koscakluka/ema-tutor/core/llms"
	"github.com/koscakluka/ema-tutor/core/roles"
)

const (
	sessionJobQueueCapacity = 32
	maxHistoryTurns         = 20
)

// TransitionRecord is an entry of a session's transition log. Records are
// appended on every role switch and never modified.
type TransitionRecord struct {
	ID     string    `json:"id"`
	At     time.Time `json:"timestamp"`
	From   roles.ID  `json:"fromRole"`
	To     roles.ID  `json:"toRole"`
	Reason string    `json:"reason"`
}

// SessionContext is the conversation state accumulated over a session.
type SessionContext struct {
	Progress           roles.Progress     `json:"progress"`
	TransitionLog      []TransitionRecord `json:"transitionLog"`
	AssessmentComplete bool               `json:"assessmentComplete"`
	StartedAt          time.Time          `json:"startTime"`
	History            []llms.Turn        `json:"history"`
}

func (c *SessionContext) appendTurns(turns ...llms.Turn) {
	c.History = append(c.History, turns...)
	if overflow := len(c.History) - maxHistoryTurns; overflow > 0 {
		c.History = append([]llms.Turn(nil), c.History[overflow:]...)
	}
}

type sessionJob struct {
	name     string
	run      func(ctx context.Context)
	queuedAt time.Time
}

// Session is the state of one learner's connection. Its role, context and
// conduit are only changed by jobs running on the session's worker, one at a
// time.
type Session struct {
	id        string
	transport Transport
	mux       *conduit.Multiplexer

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	activeRole roles.ID
	context    SessionContext

	// Read by the audio path without taking mu.
	voiceModeEnabled atomic.Bool
	// Bumped by every voice toggle request; a toggle job that is no longer
	// the latest request does not turn voice back on.
	voiceToggles atomic.Uint64

	jobs      chan sessionJob
	closeCh   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

type SessionOption func(*Session)

func withConduit(mux *conduit.Multiplexer) SessionOption {
	return func(s *Session) {
		s.mux = mux
	}
}

func withVoiceMode(enabled bool) SessionOption {
	return func(s *Session) {
		s.voiceModeEnabled.Store(enabled)
	}
}

func withStartTime(startedAt time.Time) SessionOption {
	return func(s *Session) {
		s.context.StartedAt = startedAt
	}
}

func withBaseContext(ctx context.Context) SessionOption {
	return func(s *Session) {
		s.ctx = ctx
	}
}

func newSession(id string, transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		id:         id,
		transport:  transport,
		ctx:        context.Background(),
		activeRole: roles.Welcomer,
		context:    SessionContext{StartedAt: time.Now()},
		jobs:       make(chan sessionJob, sessionJobQueueCapacity),
		closeCh:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mux == nil {
		s.mux = conduit.New(nil)
	}
	if s.transport == nil {
		s.transport = TransportFunc(func(events.Event) error { return nil })
	}
	// Session work must not inherit the deadline of the request that
	// created it.
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(s.ctx))

	go s.work()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) ActiveRole() roles.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRole
}

func (s *Session) VoiceModeEnabled() bool {
	return s.voiceModeEnabled.Load()
}

func (s *Session) work() {
	defer close(s.done)

	for {
		select {
		case <-s.closeCh:
			return
		case job := <-s.jobs:
			if s.closed.Load() {
				return
			}
			if wait := time.Since(job.queuedAt); wait > time.Second {
				logger.Debug("session job waited in queue", "session_id", s.id, "job", job.name, "wait", wait)
			}
			job.run(s.ctx)
		}
	}
}

// enqueue schedules run on the session worker. It reports false when the
// session has been closed.
func (s *Session) enqueue(name string, run func(ctx context.Context)) bool {
	if s.closed.Load() {
		return false
	}

	select {
	case <-s.closeCh:
		return false
	case s.jobs <- sessionJob{name: name, run: run, queuedAt: time.Now()}:
		return true
	}
}

// barrier waits until every job queued before it has run.
func (s *Session) barrier(ctx context.Context) error {
	reached := make(chan struct{})
	if !s.enqueue("barrier", func(context.Context) { close(reached) }) {
		return ErrSessionClosed
	}

	select {
	case <-reached:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emit sends event to the client unless the session has been torn down, in
// which case late results are discarded.
func (s *Session) emit(event events.Event) {
	if s.closed.Load() {
		return
	}
	s.send(event)
}

func (s *Session) send(event events.Event) {
	if err := s.transport.Emit(event); err != nil {
		logger.Warn("failed to emit event", "session_id", s.id, "event", event.Kind(), "error", err)
	}
}

// close cancels in-flight work and tears down the conduit. Only the first
// call has any effect.
func (s *Session) close() bool {
	closed := false
	s.closeOnce.Do(func() {
		closed = true
		s.closed.Store(true)
		s.cancel()
		close(s.closeCh)
		s.mux.Close()
	})
	return closed
}

func (s *Session) isClosed() bool {
	return s.closed.Load()
}

// duration is how long the session has existed.
func (s *Session) duration(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.context.StartedAt)
}

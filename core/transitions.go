package orchestration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-tutor/core/conduit"
	"github.com/koscakluka/ema-tutor/core/cues"
	"github.com/koscakluka/ema-tutor/core/events"
	"github.com/koscakluka/ema-tutor/core/llms"
	"github.com/koscakluka/ema-tutor/core/roles"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// processUtterance handles a learner utterance on the session worker. A cue
// that moves the conversation to another role makes the new role's opening
// turn the reply; otherwise the active role answers and its answer is checked
// for cues of its own.
func (o *Orchestrator) processUtterance(ctx context.Context, session *Session, utterance string) {
	ctx, span := tracer.Start(ctx, "handle utterance", trace.WithAttributes(attribute.String("session.id", session.id)))
	defer span.End()

	role, err := o.roles.Get(session.ActiveRole())
	if err != nil {
		o.reportFailure(ctx, session, err)
		return
	}
	span.SetAttributes(attribute.String("role", string(role.ID)))

	learnerTurn := o.newTurn(llms.TurnRoleLearner, "", utterance)

	if transition, ok := role.DetectTransition(utterance, cues.SpeakerLearner); ok {
		if transition.Next != role.ID {
			o.switchRole(ctx, session, transition, utterance, learnerTurn)
			return
		}
		logger.Debug("cue keeps current role", "session_id", session.id, "role", role.ID, "reason", transition.Reason)
	}

	req := o.request(session, utterance, "")
	result, err := o.invoke(ctx, role.ProduceResponse, req)
	if err != nil {
		o.reportFailure(ctx, session, err)
		return
	}

	if !o.commitTurn(session, role, result, learnerTurn) {
		return
	}
	o.deliver(ctx, session, role, result.Text)
	o.detectRoleHandoff(ctx, session, role, result.Text)
}

func (o *Orchestrator) detectRoleHandoff(ctx context.Context, session *Session, role *roles.Role, text string) {
	transition, ok := role.DetectTransition(text, cues.SpeakerRole)
	if !ok || transition.Next == role.ID {
		return
	}
	o.switchRole(ctx, session, transition, "")
}

// switchRole moves the session to transition.Next.
//
// Learner audio is held from the start of the switch until the new role's
// opening turn has been produced. The new role's voice is dialled without the
// session lock; attaching it and publishing the new role then happen together
// under the lock, so no observer sees the new role with the old role's
// connection.
func (o *Orchestrator) switchRole(ctx context.Context, session *Session, transition roles.Transition, utterance string, pending ...llms.Turn) {
	ctx, span := tracer.Start(ctx, "switch role", trace.WithAttributes(
		attribute.String("session.id", session.id),
		attribute.String("role.next", string(transition.Next)),
		attribute.String("transition.reason", transition.Reason),
	))
	defer span.End()

	next, err := o.roles.Get(transition.Next)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown role")
		o.reportFailure(ctx, session, err)
		return
	}

	var link *conduit.Link
	var voiceErr error
	if session.VoiceModeEnabled() {
		session.mux.Hold()
		link, voiceErr = o.dialVoice(ctx, session, next)
	}
	defer session.mux.Release()

	session.mu.Lock()
	previous := session.activeRole

	if link != nil {
		if err := session.mux.Attach(link); err != nil {
			voiceErr = fmt.Errorf("%w: %w", ErrVoiceUnavailable, err)
		}
	}
	if voiceErr != nil {
		session.voiceModeEnabled.Store(false)
		session.mux.Disconnect()
	}

	session.context.TransitionLog = append(session.context.TransitionLog, TransitionRecord{
		ID:     uuid.Must(uuid.NewV7()).String(),
		At:     o.now(),
		From:   previous,
		To:     next.ID,
		Reason: transition.Reason,
	})
	if next.ID == roles.QuestionPresenter && !session.context.AssessmentComplete {
		session.context.AssessmentComplete = true
	}
	session.activeRole = next.ID
	session.context.appendTurns(pending...)
	session.mu.Unlock()

	o.recordTransition(ctx, previous, next.ID)
	logger.Info("role transition", "session_id", session.id, "from", previous, "to", next.ID, "reason", transition.Reason)

	session.emit(events.NewAgentChanged(previous, next.ID, next.Info))
	if voiceErr != nil {
		o.degradeVoice(ctx, session, voiceErr)
	}

	o.startConversation(ctx, session, next, previous, utterance)
}

// startConversation produces role's opening turn. A failure here keeps the
// role active; the learner can carry on talking to it.
func (o *Orchestrator) startConversation(ctx context.Context, session *Session, role *roles.Role, previous roles.ID, utterance string) {
	result, err := o.invoke(ctx, role.StartConversation, o.request(session, utterance, previous))
	if err != nil {
		o.reportFailure(ctx, session, err)
		return
	}

	if !o.commitTurn(session, role, result) {
		return
	}
	o.deliver(ctx, session, role, result.Text)
}

func (o *Orchestrator) request(session *Session, utterance string, previous roles.ID) roles.Request {
	session.mu.RLock()
	defer session.mu.RUnlock()

	return roles.Request{
		Utterance: utterance,
		Previous:  previous,
		Progress:  session.context.Progress,
		History:   append([]llms.Turn(nil), session.context.History...),
	}
}

type roleCall func(ctx context.Context, generator llms.Generator, req roles.Request) (roles.Result, error)

func (o *Orchestrator) invoke(ctx context.Context, call roleCall, req roles.Request) (roles.Result, error) {
	ctx, cancel := o.withProviderTimeout(ctx)
	defer cancel()

	result, err := call(ctx, o.llm, req)
	if err != nil {
		return roles.Result{}, classifyProviderError(err)
	}
	return result, nil
}

// commitTurn stores a role's turn, and the learner turn that prompted it,
// unless the role is no longer active.
func (o *Orchestrator) commitTurn(session *Session, role *roles.Role, result roles.Result, preceding ...llms.Turn) bool {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.activeRole != role.ID || session.isClosed() {
		return false
	}
	session.context.Progress = result.Progress
	session.context.appendTurns(preceding...)
	session.context.appendTurns(o.newTurn(llms.TurnRoleAssistant, string(role.ID), result.Text))
	return true
}

// deliver sends a role's turn to the client and, in voice mode, speaks it.
func (o *Orchestrator) deliver(ctx context.Context, session *Session, role *roles.Role, text string) {
	session.emit(events.NewAgentResponse(text, role.ID, role.Info))

	if !session.VoiceModeEnabled() {
		return
	}
	session.emit(events.NewTranscription(text, string(role.ID)))

	speakCtx, cancel := o.withProviderTimeout(ctx)
	defer cancel()
	if err := session.mux.Speak(speakCtx, text); err != nil {
		o.reportFailure(ctx, session, classifyProviderError(err))
	}
}

func (o *Orchestrator) newTurn(role llms.TurnRole, speaker string, content string) llms.Turn {
	return llms.Turn{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Role:    role,
		Speaker: speaker,
		Content: content,
		At:      o.now(),
	}
}

package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-tutor/core"
	"github.com/koscakluka/ema-tutor/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrConnectionClosed = errors.New("connection closed")

const (
	sessionNotStartedMessage = "No active session. Send start-session first."
	sessionStartedMessage    = "A session is already running on this connection."
	invalidMessageMessage    = "Invalid message."
)

// connection serves one client. It is the session's Transport.
type connection struct {
	id           string
	conn         *websocket.Conn
	orchestrator Orchestrator
	handler      *Handler

	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(h *Handler, conn *websocket.Conn) *connection {
	return &connection{
		id:           h.newID(),
		conn:         conn,
		orchestrator: h.orchestrator,
		handler:      h,
		frames:       make(chan []byte, h.queueSize),
		done:         make(chan struct{}),
	}
}

// Emit queues an outbound event for the writer. It blocks while the queue is
// full and fails once the connection has shut down.
func (c *connection) Emit(event events.Event) error {
	frame, err := encodeEvent(event)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.frames <- frame:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	}
}

func (c *connection) serve(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "serve websocket", trace.WithAttributes(
		attribute.String("session.id", c.id),
	))
	defer span.End()

	openConnections.Add(ctx, 1)
	defer openConnections.Add(ctx, -1)
	logger.Info("client connected", "session_id", c.id)

	writerCtx, stopWriter := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writer := outboundWriter{
			ws:           c.conn,
			frames:       c.frames,
			pingInterval: c.handler.pingInterval,
			writeTimeout: c.handler.writeTimeout,
		}
		if err := writer.Run(writerCtx); err != nil {
			logger.Warn("websocket write failed", "session_id", c.id, "error", err)
			c.shutdown()
		}
	}()

	if err := c.read(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	c.orchestrator.Disconnect(ctx, c.id)
	stopWriter()
	<-writerDone
	c.shutdown()
	logger.Info("client disconnected", "session_id", c.id)
}

// shutdown stops accepting outbound events and unblocks the reader.
func (c *connection) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *connection) read(ctx context.Context) error {
	pongWait := 2 * c.handler.pingInterval
	if c.handler.maxMessageSize > 0 {
		c.conn.SetReadLimit(c.handler.maxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Warn("websocket read failed", "session_id", c.id, "error", err)
				return err
			}
			return nil
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch messageType {
		case websocket.BinaryMessage:
			c.reportIfFailed(events.KindAudioData, c.orchestrator.HandleAudio(ctx, c.id, payload))
		case websocket.TextMessage:
			c.dispatch(ctx, payload)
		}
	}
}

func (c *connection) dispatch(ctx context.Context, payload []byte) {
	frame, err := decodeFrame(payload)
	if err != nil {
		logger.Warn("rejecting client frame", "session_id", c.id, "error", err)
		_ = c.Emit(events.NewError(invalidMessageMessage))
		return
	}

	switch frame.Event {
	case events.KindStartSession:
		_, err = c.orchestrator.StartSession(ctx, c.id, c)
	case events.KindEndSession:
		err = c.orchestrator.EndSession(ctx, c.id)
	case events.KindUserMessage:
		var message events.UserMessage
		if message, err = decodeData[events.UserMessage](frame); err == nil {
			err = c.orchestrator.HandleUserMessage(ctx, c.id, message.Text)
		}
	case events.KindAudioData:
		var chunk events.AudioData
		if chunk, err = decodeData[events.AudioData](frame); err == nil {
			err = c.orchestrator.HandleAudio(ctx, c.id, chunk.Bytes)
		}
	case events.KindToggleVoiceMode:
		var toggle events.ToggleVoiceMode
		if toggle, err = decodeData[events.ToggleVoiceMode](frame); err == nil {
			err = c.orchestrator.ToggleVoiceMode(ctx, c.id, toggle.Enabled)
		}
	}
	c.reportIfFailed(frame.Event, err)
}

// reportIfFailed logs a rejected client event and tells the client why.
func (c *connection) reportIfFailed(kind events.Kind, err error) {
	if err == nil {
		return
	}

	logger.Warn("client event rejected", "session_id", c.id, "event", string(kind), "error", err)
	switch {
	case errors.Is(err, orchestration.ErrSessionNotFound), errors.Is(err, orchestration.ErrSessionClosed):
		_ = c.Emit(events.NewError(sessionNotStartedMessage))
	case errors.Is(err, orchestration.ErrDuplicateSession):
		_ = c.Emit(events.NewError(sessionStartedMessage))
	default:
		_ = c.Emit(events.NewError(invalidMessageMessage))
	}
}

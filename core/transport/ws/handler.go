// Package ws exposes tutoring sessions to browser and terminal clients over a
// WebSocket.
//
// Each connection owns at most one session, identified by a fresh UUID. Text
// messages are JSON frames of the form {"event": ..., "data": ...}; binary
// messages are raw audio-data chunks. Outbound events are queued and written
// by a single writer goroutine that also keeps the connection alive with
// pings.
package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/ema-tutor/core"
)

const (
	defaultPingInterval   = 20 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultMaxMessageSize = 1 << 20
	defaultQueueSize      = 256
)

// Orchestrator is the part of the session orchestrator a connection drives.
type Orchestrator interface {
	StartSession(ctx context.Context, id string, transport orchestration.Transport) (*orchestration.Session, error)
	EndSession(ctx context.Context, id string) error
	HandleUserMessage(ctx context.Context, id string, text string) error
	HandleAudio(ctx context.Context, id string, chunk []byte) error
	ToggleVoiceMode(ctx context.Context, id string, enabled bool) error
	Disconnect(ctx context.Context, id string)
}

type Handler struct {
	orchestrator Orchestrator

	allowedOrigins map[string]struct{}
	pingInterval   time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64
	queueSize      int
	newID          func() string

	upgrader websocket.Upgrader
}

type Option func(*Handler)

// WithAllowedOrigins restricts which browser origins may connect. Requests
// without an Origin header are always accepted; with no origins configured
// every origin is accepted.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				h.allowedOrigins[origin] = struct{}{}
			}
		}
	}
}

func WithPingInterval(interval time.Duration) Option {
	return func(h *Handler) {
		h.pingInterval = interval
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.writeTimeout = timeout
	}
}

func WithMaxMessageSize(size int64) Option {
	return func(h *Handler) {
		h.maxMessageSize = size
	}
}

// WithQueueSize sets how many outbound frames may wait for the writer before
// emitting blocks.
func WithQueueSize(size int) Option {
	return func(h *Handler) {
		h.queueSize = size
	}
}

func NewHandler(orchestrator Orchestrator, opts ...Option) *Handler {
	h := &Handler{
		orchestrator:   orchestrator,
		allowedOrigins: map[string]struct{}{},
		pingInterval:   defaultPingInterval,
		writeTimeout:   defaultWriteTimeout,
		maxMessageSize: defaultMaxMessageSize,
		queueSize:      defaultQueueSize,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.pingInterval <= 0 {
		h.pingInterval = defaultPingInterval
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = defaultWriteTimeout
	}
	if h.queueSize <= 0 {
		h.queueSize = defaultQueueSize
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.originAllowed}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	// Detached from the request; trace values are kept.
	ctx := context.WithoutCancel(r.Context())
	newConnection(h, conn).serve(ctx)
}

func (h *Handler) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	_, ok := h.allowedOrigins[origin]
	return ok
}

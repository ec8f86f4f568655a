package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// outboundWriter is the only goroutine writing to a connection. It drains
// queued frames in order and keeps the connection alive with pings.
type outboundWriter struct {
	ws           wsWriter
	frames       <-chan []byte
	pingInterval time.Duration
	writeTimeout time.Duration
}

func (w *outboundWriter) Run(ctx context.Context) error {
	pingTicker := time.NewTicker(w.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush()
			_ = w.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(w.writeTimeout))
			return nil
		case <-pingTicker.C:
			if err := w.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(w.writeTimeout)); err != nil {
				return err
			}
		case frame := <-w.frames:
			if err := w.write(frame); err != nil {
				return err
			}
		}
	}
}

// flush writes frames that were queued before shutdown, such as a final
// session-ended.
func (w *outboundWriter) flush() {
	for {
		select {
		case frame := <-w.frames:
			if err := w.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (w *outboundWriter) write(frame []byte) error {
	if err := w.ws.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.ws.WriteMessage(websocket.TextMessage, frame)
}

package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordedWrite struct {
	messageType int
	data        string
}

type wsWriterStub struct {
	mu     sync.Mutex
	writes []recordedWrite
}

func (f *wsWriterStub) SetWriteDeadline(time.Time) error { return nil }

func (f *wsWriterStub) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, recordedWrite{messageType: messageType, data: string(data)})
	return nil
}

func (f *wsWriterStub) WriteControl(messageType int, data []byte, _ time.Time) error {
	return f.WriteMessage(messageType, data)
}

func (f *wsWriterStub) snapshot() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedWrite(nil), f.writes...)
}

func TestOutboundWriterFlushesQueuedFramesBeforeClosing(t *testing.T) {
	frames := make(chan []byte, 3)
	frames <- []byte("first")
	frames <- []byte("second")
	frames <- []byte("session-ended")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ws := &wsWriterStub{}
	writer := outboundWriter{ws: ws, frames: frames, pingInterval: time.Hour, writeTimeout: time.Second}
	if err := writer.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writes := ws.snapshot()
	if len(writes) != 4 {
		t.Fatalf("expected three frames and a close, got %+v", writes)
	}
	for i, expected := range []string{"first", "second", "session-ended"} {
		if writes[i].messageType != websocket.TextMessage || writes[i].data != expected {
			t.Fatalf("write %d: expected %q, got %+v", i, expected, writes[i])
		}
	}
	if writes[3].messageType != websocket.CloseMessage {
		t.Fatalf("expected a close message last, got %+v", writes[3])
	}
}

func TestOutboundWriterPings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ws := &wsWriterStub{}
	writer := outboundWriter{ws: ws, frames: make(chan []byte), pingInterval: 10 * time.Millisecond, writeTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- writer.Run(ctx) }()

	waitForCondition(t, time.Second, "a ping", func() bool {
		for _, write := range ws.snapshot() {
			if write.messageType == websocket.PingMessage {
				return true
			}
		}
		return false
	})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

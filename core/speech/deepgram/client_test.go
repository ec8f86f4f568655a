package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-tutor/core/audio"
	"github.com/koscakluka/ema-tutor/core/speech"
)

type deepgramServerStub struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu          sync.Mutex
	listenQuery map[string]string
	speakQuery  map[string]string
	authHeaders []string
	audio       [][]byte
	spoken      []string
	listenConn  *websocket.Conn
}

func newDeepgramServerStub(t *testing.T) (*deepgramServerStub, *httptest.Server) {
	stub := &deepgramServerStub{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/listen", stub.handleListen)
	mux.HandleFunc("/v1/speak", stub.handleSpeak)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return stub, server
}

func (s *deepgramServerStub) record(r *http.Request, target *map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := map[string]string{}
	for key := range r.URL.Query() {
		values[key] = r.URL.Query().Get(key)
	}
	*target = values
	s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
}

func (s *deepgramServerStub) handleListen(w http.ResponseWriter, r *http.Request) {
	s.record(r, &s.listenQuery)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.listenConn = conn
	s.mu.Unlock()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.BinaryMessage {
			s.mu.Lock()
			s.audio = append(s.audio, msg)
			s.mu.Unlock()
		}
	}
}

func (s *deepgramServerStub) handleSpeak(w http.ResponseWriter, r *http.Request) {
	s.record(r, &s.speakQuery)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg speakMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "Speak":
			s.mu.Lock()
			s.spoken = append(s.spoken, msg.Text)
			s.mu.Unlock()
		case "Flush":
			_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
			_ = conn.WriteJSON(websocketMessage{Type: "Flushed"})
		case "Close":
			return
		}
	}
}

func (s *deepgramServerStub) sendResult(t *testing.T, transcript string, isFinal, speechFinal bool) {
	t.Helper()
	s.mu.Lock()
	conn := s.listenConn
	s.mu.Unlock()

	msg := map[string]any{
		"type":         "Results",
		"is_final":     isFinal,
		"speech_final": speechFinal,
		"channel": map[string]any{
			"alternatives": []map[string]any{{"transcript": transcript}},
		},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send result: %v", err)
	}
}

func (s *deepgramServerStub) sendRaw(t *testing.T, msg any) {
	t.Helper()
	s.mu.Lock()
	conn := s.listenConn
	s.mu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
}

func newTestClient(server *httptest.Server) *Client {
	base := "ws" + strings.TrimPrefix(server.URL, "http")
	return NewClient("test-key",
		WithListenURL(base+"/v1/listen"),
		WithSpeakURL(base+"/v1/speak"),
		WithKeepAliveInterval(0),
	)
}

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

func TestConnectOpensBothSockets(t *testing.T) {
	stub, server := newDeepgramServerStub(t)

	conn, err := newTestClient(server).Connect(context.Background(), "aura-luna-en")
	if err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	defer conn.Close()

	waitForCondition(t, time.Second, "both sockets", func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return stub.listenQuery != nil && stub.speakQuery != nil
	})

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.listenQuery["model"] != "nova-3" || stub.listenQuery["encoding"] != "linear16" || stub.listenQuery["sample_rate"] != "16000" {
		t.Fatalf("unexpected listen query %v", stub.listenQuery)
	}
	if stub.speakQuery["model"] != "aura-luna-en" || stub.speakQuery["container"] != "none" {
		t.Fatalf("unexpected speak query %v", stub.speakQuery)
	}
	for _, header := range stub.authHeaders {
		if header != "Token test-key" {
			t.Fatalf("unexpected authorization header %q", header)
		}
	}
}

func TestConnectValidation(t *testing.T) {
	_, server := newDeepgramServerStub(t)
	client := newTestClient(server)

	if _, err := NewClient("").Connect(context.Background(), "aura-luna-en"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := client.Connect(context.Background(), "alloy"); err == nil {
		t.Fatalf("expected unknown voice to be rejected")
	}
	mulaw16k := audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingMulaw}
	if _, err := client.Connect(context.Background(), "aura-luna-en", speech.WithEncodingInfo(mulaw16k)); err == nil {
		t.Fatalf("expected unsupported encoding to be rejected")
	}
}

func TestConnectFailsWhenServerUnreachable(t *testing.T) {
	client := NewClient("test-key", WithListenURL("ws://127.0.0.1:1/v1/listen"), WithKeepAliveInterval(0))
	if _, err := client.Connect(context.Background(), "aura-luna-en"); err == nil {
		t.Fatalf("expected dial failure")
	}
}

func TestSendAudioPreservesOrder(t *testing.T) {
	stub, server := newDeepgramServerStub(t)

	conn, err := newTestClient(server).Connect(context.Background(), "aura-luna-en")
	if err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	defer conn.Close()

	for _, chunk := range [][]byte{{1}, {2}, {3}} {
		if err := conn.SendAudio(chunk); err != nil {
			t.Fatalf("unexpected send error: %v", err)
		}
	}

	waitForCondition(t, time.Second, "audio chunks", func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return len(stub.audio) == 3
	})
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for i, chunk := range stub.audio {
		if chunk[0] != byte(i+1) {
			t.Fatalf("expected chunk %d to be %d, got %d", i, i+1, chunk[0])
		}
	}
}

func TestTranscriptsAreAccumulatedUntilSpeechFinal(t *testing.T) {
	stub, server := newDeepgramServerStub(t)

	transcripts := make(chan string, 4)
	conn, err := newTestClient(server).Connect(context.Background(), "aura-luna-en",
		speech.WithTranscriptionCallback(func(transcript string) { transcripts <- transcript }))
	if err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	defer conn.Close()

	waitForCondition(t, time.Second, "listen socket", func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return stub.listenConn != nil
	})

	stub.sendResult(t, "I don't", false, false)
	stub.sendResult(t, "I don't know", true, false)
	stub.sendResult(t, "the answer", true, true)
	stub.sendResult(t, "maybe", true, false)
	stub.sendRaw(t, map[string]any{"type": "UtteranceEnd"})

	for _, expected := range []string{"I don't know the answer", "maybe"} {
		select {
		case got := <-transcripts:
			if got != expected {
				t.Fatalf("expected transcript %q, got %q", expected, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for transcript %q", expected)
		}
	}
}

func TestSpeakWaitsForFlush(t *testing.T) {
	stub, server := newDeepgramServerStub(t)

	var mu sync.Mutex
	var received [][]byte
	conn, err := newTestClient(server).Connect(context.Background(), "aura-luna-en",
		speech.WithSpeechAudioCallback(func(audio []byte) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, audio)
		}))
	if err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Speak(ctx, "Here's your problem"); err != nil {
		t.Fatalf("unexpected speak error: %v", err)
	}

	stub.mu.Lock()
	spoken := append([]string(nil), stub.spoken...)
	stub.mu.Unlock()
	if len(spoken) != 1 || spoken[0] != "Here's your problem" {
		t.Fatalf("unexpected spoken text %v", spoken)
	}

	waitForCondition(t, time.Second, "synthesized audio", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	_, server := newDeepgramServerStub(t)

	conn, err := newTestClient(server).Connect(context.Background(), "aura-luna-en")
	if err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected second close error: %v", err)
	}
	if err := conn.SendAudio([]byte{1}); !errors.Is(err, speech.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	if err := conn.Speak(context.Background(), "hi"); !errors.Is(err, speech.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestProcessListenMessageIgnoresMalformedPayloads(t *testing.T) {
	conn := &connection{options: speech.ApplyOptions()}
	conn.processListenMessage([]byte("not json"))
	raw, _ := json.Marshal(map[string]any{"type": "Results", "is_final": "nope"})
	conn.processListenMessage(raw)
	if conn.accumulatedTranscript != "" {
		t.Fatalf("expected malformed payloads to be ignored")
	}
}

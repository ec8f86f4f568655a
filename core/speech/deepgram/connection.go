package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-tutor/core/speech"
)

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	keepAliveMsg   = websocketMessage{Type: "KeepAlive"}
	closeStreamMsg = websocketMessage{Type: string(api.TypeCloseStreamResponse)}
	flushMsg       = websocketMessage{Type: "Flush"}
	closeMsg       = websocketMessage{Type: "Close"}
)

type connection struct {
	voice   string
	options speech.ConnectOptions

	listen    *websocket.Conn
	listenMu  sync.Mutex
	lastAudio time.Time

	speak   *websocket.Conn
	speakMu sync.Mutex
	flushed chan struct{}

	// Read only by the listen goroutine.
	accumulatedTranscript string
	unendedSegment        bool

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(voice string, listen, speak *websocket.Conn, options speech.ConnectOptions, keepAliveInterval time.Duration) *connection {
	conn := &connection{
		voice:     voice,
		options:   options,
		listen:    listen,
		speak:     speak,
		lastAudio: time.Now(),
		flushed:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	go conn.readTranscripts()
	go conn.readSpeech()
	if keepAliveInterval > 0 {
		go conn.keepAlive(keepAliveInterval)
	}
	return conn
}

func (c *connection) SendAudio(chunk []byte) error {
	if c.closed.Load() {
		return speech.ErrConnectionClosed
	}

	c.listenMu.Lock()
	defer c.listenMu.Unlock()

	c.lastAudio = time.Now()
	if err := c.listen.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// Speak sends text for synthesis and waits until Deepgram confirms the flush.
// Deepgram drops text sent after a flush until the confirmation arrives, so
// calls are serialized.
func (c *connection) Speak(ctx context.Context, text string) error {
	if c.closed.Load() {
		return speech.ErrConnectionClosed
	}

	c.speakMu.Lock()
	defer c.speakMu.Unlock()

	select {
	case <-c.flushed:
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.speak.SetWriteDeadline(deadline)
		defer c.speak.SetWriteDeadline(time.Time{})
	}
	if err := c.speak.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return fmt.Errorf("failed to send text to deepgram through websocket: %w", err)
	}
	if err := c.speak.WriteJSON(flushMsg); err != nil {
		return fmt.Errorf("failed to flush deepgram buffer through websocket: %w", err)
	}

	select {
	case <-c.flushed:
		return nil
	case <-c.done:
		return speech.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)

		c.listenMu.Lock()
		_ = c.listen.WriteJSON(closeStreamMsg)
		c.listenMu.Unlock()
		_ = c.listen.Close()

		c.speakMu.Lock()
		_ = c.speak.WriteJSON(closeMsg)
		c.speakMu.Unlock()
		_ = c.speak.Close()
	})
	return nil
}

func (c *connection) keepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.listenMu.Lock()
			if time.Since(c.lastAudio) >= interval {
				if err := c.listen.WriteJSON(keepAliveMsg); err != nil {
					logger.Warn("failed to send keep alive", "voice", c.voice, "error", err)
				}
			}
			c.listenMu.Unlock()
		}
	}
}

func (c *connection) readTranscripts() {
	for {
		msgType, msg, err := c.listen.ReadMessage()
		if err != nil {
			c.handleReadError("listen", err)
			return
		}
		if msgType != websocket.BinaryMessage {
			c.processListenMessage(msg)
		}
	}
}

func (c *connection) processListenMessage(msg []byte) {
	var parsedMsg websocketMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram results", "error", err)
			return
		}
		if !msgResp.IsFinal {
			return
		}
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
			if len(transcript) > 0 {
				c.accumulatedTranscript += " " + transcript
				c.unendedSegment = true
			}
		}
		if msgResp.SpeechFinal {
			c.onSpeechEnded()
		}

	case api.TypeUtteranceEndResponse:
		if c.unendedSegment {
			c.onSpeechEnded()
		}

	case api.TypeSpeechStartedResponse:
		c.unendedSegment = true
	}
}

func (c *connection) onSpeechEnded() {
	c.unendedSegment = false
	transcript := strings.TrimSpace(c.accumulatedTranscript)
	c.accumulatedTranscript = ""
	if len(transcript) > 0 && !c.closed.Load() {
		c.options.TranscriptionCallback(transcript)
	}
}

func (c *connection) readSpeech() {
	for {
		msgType, msg, err := c.speak.ReadMessage()
		if err != nil {
			c.handleReadError("speak", err)
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) > 0 && !c.closed.Load() {
				c.options.SpeechAudioCallback(msg)
			}
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				select {
				case c.flushed <- struct{}{}:
				default:
				}
			case "Warning", "Error":
				logger.Warn("deepgram speak message", "voice", c.voice, "type", parsedMsg.Type, "message", string(msg))
			}
		}
	}
}

func (c *connection) handleReadError(socket string, err error) {
	if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return
	}

	logger.Error("deepgram websocket read failed", "socket", socket, "voice", c.voice, "error", err)
	c.options.ErrorCallback(fmt.Errorf("deepgram %s socket: %w", socket, errors.Join(speech.ErrConnectionClosed, err)))
}

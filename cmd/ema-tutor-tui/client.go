package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-tutor/core/events"
)

const writeTimeout = 5 * time.Second

type frame struct {
	Event events.Kind     `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// serverEventMsg carries one outbound server event into the UI.
type serverEventMsg frame

type disconnectedMsg struct{ err error }

// client is the terminal side of the tutoring websocket.
type client struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

func dial(url string) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &client{conn: conn}, nil
}

func (c *client) SendEvent(kind events.Kind, data any) error {
	out := frame{Event: kind}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return err
		}
		out.Data = payload
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(out)
}

// SendAudio streams a raw microphone chunk as a binary message.
func (c *client) SendAudio(chunk []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// listen delivers server events to send until the connection closes.
func (c *client) listen(send func(msg any)) {
	for {
		var in frame
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = nil
			}
			send(disconnectedMsg{err: err})
			return
		}
		send(serverEventMsg(in))
	}
}

func (c *client) Close() error {
	c.writeMu.Lock()
	err := c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	return errors.Join(err, c.conn.Close())
}

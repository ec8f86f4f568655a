// Package deepgram implements the speech provider on top of Deepgram's
// streaming listen (recognition) and speak (synthesis) websockets.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-tutor/core/speech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultListenURL         = "wss://api.deepgram.com/v1/listen"
	defaultSpeakURL          = "wss://api.deepgram.com/v1/speak"
	defaultListenModel       = "nova-3"
	defaultKeepAliveInterval = 5 * time.Second
)

var ErrMissingAPIKey = errors.New("deepgram api key not set")

type Client struct {
	apiKey            string
	listenURL         string
	speakURL          string
	listenModel       string
	keepAliveInterval time.Duration
	dialer            *websocket.Dialer
}

type ClientOption func(*Client)

// WithListenURL overrides the recognition endpoint.
func WithListenURL(listenURL string) ClientOption {
	return func(c *Client) {
		c.listenURL = listenURL
	}
}

// WithSpeakURL overrides the synthesis endpoint.
func WithSpeakURL(speakURL string) ClientOption {
	return func(c *Client) {
		c.speakURL = speakURL
	}
}

func WithListenModel(model string) ClientOption {
	return func(c *Client) {
		c.listenModel = model
	}
}

// WithKeepAliveInterval sets how long the listen socket may go without audio
// before a KeepAlive message is sent.
func WithKeepAliveInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.keepAliveInterval = interval
	}
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = dialer
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey:            apiKey,
		listenURL:         defaultListenURL,
		speakURL:          defaultSpeakURL,
		listenModel:       defaultListenModel,
		keepAliveInterval: defaultKeepAliveInterval,
		dialer:            websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Connect opens the listen and speak sockets for voice. Both must succeed;
// a half-open connection is never returned.
func (c *Client) Connect(ctx context.Context, voice string, opts ...speech.ConnectOption) (speech.Connection, error) {
	ctx, span := tracer.Start(ctx, "connect speech", trace.WithAttributes(attribute.String("speech.voice", voice)))
	defer span.End()

	conn, err := c.connect(ctx, voice, speech.ApplyOptions(opts...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect")
		return nil, err
	}
	return conn, nil
}

func (c *Client) connect(ctx context.Context, voice string, options speech.ConnectOptions) (*connection, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if !isAvailableVoice(voice) {
		return nil, fmt.Errorf("invalid voice %q", voice)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return nil, fmt.Errorf("invalid encoding: %w", err)
	}

	listenQuery := url.Values{}
	listenQuery.Set("encoding", encoding.Format.Name())
	listenQuery.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	listenQuery.Set("channels", "1")
	listenQuery.Set("model", c.listenModel)
	listenQuery.Set("language", "en-US")
	listenQuery.Set("smart_format", "true")
	listenQuery.Set("interim_results", "true")
	listenQuery.Set("utterance_end_ms", "1000")
	listenQuery.Set("endpointing", "300")
	listenQuery.Set("vad_events", "true")

	listenConn, err := c.dial(ctx, c.listenURL, listenQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to open listen socket: %w", err)
	}

	speakQuery := url.Values{}
	speakQuery.Set("encoding", encoding.Format.Name())
	speakQuery.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	speakQuery.Set("model", voice)
	speakQuery.Set("container", "none")

	speakConn, err := c.dial(ctx, c.speakURL, speakQuery)
	if err != nil {
		_ = listenConn.Close()
		return nil, fmt.Errorf("failed to open speak socket: %w", err)
	}

	return newConnection(voice, listenConn, speakConn, options, c.keepAliveInterval), nil
}

func (c *Client) dial(ctx context.Context, rawURL string, query url.Values) (*websocket.Conn, error) {
	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	endpoint.RawQuery = query.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open socket connection to deepgram (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

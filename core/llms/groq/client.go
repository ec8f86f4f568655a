package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-tutor/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultURL = "https://api.groq.com/openai/v1/chat/completions"

type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithURL(url string) ClientOption {
	return func(c *Client) { c.url = url }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey: apiKey,
		model:  model,
		url:    defaultURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(string, *http.Request) string {
				return "groq chat completion"
			}),
		)},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "groq prompt")
	defer span.End()
	span.SetAttributes(attribute.String("groq.model", c.model))

	options := llms.ApplyOptions(opts...)
	messages := toMessages(options.Instructions, options.Turns)
	if prompt != "" {
		messages = append(messages, message{Role: messageRoleUser, Content: prompt})
	}

	requestBodyBytes, err := json.Marshal(requestBody{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.WarnContext(ctx, "groq returned non-OK status", "status", resp.Status, "body", string(bodyBytes))
		err := fmt.Errorf("non-OK HTTP status: %s", resp.Status)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var responseBody responseBody
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return nil, fmt.Errorf("error unmarshalling response body: %w", err)
	}

	if len(responseBody.Choices) == 0 {
		return nil, llms.ErrEmptyResponse
	}

	content := strings.TrimSpace(responseBody.Choices[0].Message.Content)
	if content == "" {
		return nil, llms.ErrEmptyResponse
	}

	span.SetAttributes(attribute.Int("groq.usage.total_tokens", responseBody.Usage.TotalTokens))
	return &llms.Response{Content: content}, nil
}

type requestBody struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type responseBody struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-tutor/core/llms"
)

func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error) {
	options := llms.ApplyOptions(opts...)

	messages := toOpenAIMessages(options.Instructions, options.Turns)
	if prompt != "" {
		messages = append(messages, openAIMessage{
			Type:    messageTypeMessage,
			Role:    messageRoleUser,
			Content: prompt,
		})
	}

	reqBody := requestBody{
		Model:  c.model,
		Input:  messages,
		Stream: false,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
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
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorBody errorResponseBody
		if err := json.Unmarshal(bodyBytes, &errorBody); err == nil && errorBody.Error.Message != "" {
			return nil, fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, errorBody.Error.Message)
		}
		return nil, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	var responseBody generalResponseBody
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return nil, fmt.Errorf("error unmarshalling response body: %w", err)
	}

	var content strings.Builder
	for _, output := range responseBody.Output {
		if output.Type != generalResponseBodyOutputTypeMessage {
			continue
		}

		for _, part := range output.Content {
			switch part.Type {
			case "output_text":
				content.WriteString(part.Text)
			case "refusal":
				content.WriteString(part.Refusal)
			}
		}
	}

	if content.Len() == 0 {
		return nil, llms.ErrEmptyResponse
	}

	return &llms.Response{Content: strings.TrimSpace(content.String())}, nil
}

type requestBody struct {
	Model  string          `json:"model"`
	Input  []openAIMessage `json:"input"`
	Stream bool            `json:"stream"`
}

type generalResponseBody struct {
	Output []generalResponseBodyOutput `json:"output"`
}

type generalResponseBodyOutput struct {
	// ID is the unique ID of the output item.
	ID string `json:"id"`
	// Type is the type of the output item.
	Type generalResponseBodyOutputTypeType `json:"type"`
	// Content is the content of the output message.
	Content []generalResponseBodyOutputMessageContent `json:"content,omitempty"`
}

// generalResponseBodyOutputMessageContent is either text output from the model
// or a refusal, depending on Type.
type generalResponseBodyOutputMessageContent struct {
	// Type is the type of the output message. 'output_text' or 'refusal'.
	Type string `json:"type"`
	// Text is the text output from the model.
	Text string `json:"text,omitempty"`
	// Refusal is the refusal explanation from the model.
	Refusal string `json:"refusal,omitempty"`
}

type generalResponseBodyOutputTypeType string

const (
	generalResponseBodyOutputTypeMessage generalResponseBodyOutputTypeType = "message"
)

type errorResponseBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

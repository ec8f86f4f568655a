package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-tutor/core/llms"
)

func TestPromptReturnsFirstChoice(t *testing.T) {
	var received requestBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"Nice try! "},"finish_reason":"stop"}],"usage":{"total_tokens":12}}`))
	}))
	defer server.Close()

	client := NewClient("key", "llama", WithURL(server.URL), WithHTTPClient(server.Client()))
	response, err := client.Prompt(context.Background(), "42", llms.WithInstructions("be a tutor"))
	if err != nil {
		t.Fatalf("expected prompt to succeed, got %v", err)
	}
	if response.Content != "Nice try!" {
		t.Fatalf("unexpected response %q", response.Content)
	}
	if len(received.Messages) != 2 || received.Messages[0].Role != messageRoleSystem {
		t.Fatalf("unexpected messages %+v", received.Messages)
	}
}

func TestPromptWithoutChoicesIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer server.Close()

	client := NewClient("key", "llama", WithURL(server.URL), WithHTTPClient(server.Client()))
	if _, err := client.Prompt(context.Background(), "42"); !errors.Is(err, llms.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestPromptNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("key", "llama", WithURL(server.URL), WithHTTPClient(server.Client()))
	if _, err := client.Prompt(context.Background(), "42"); err == nil {
		t.Fatalf("expected error for non-OK status")
	}
}

// Package scripted is an offline generator that answers with fixed,
// encouraging tutor phrasing. It makes the server usable without provider
// credentials and keeps tests deterministic.
package scripted

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/koscakluka/ema-tutor/core/llms"
)

type Generator struct {
	// Replies, when set, are returned in order and then repeated from the
	// last one.
	Replies []string

	mu    sync.Mutex
	calls int
}

func New(replies ...string) *Generator {
	return &Generator{Replies: replies}
}

func (g *Generator) Prompt(ctx context.Context, prompt string, _ ...llms.PromptOption) (*llms.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(g.Replies) > 0 {
		g.mu.Lock()
		defer g.mu.Unlock()
		reply := g.Replies[min(g.calls, len(g.Replies)-1)]
		g.calls++
		return &llms.Response{Content: reply}, nil
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return &llms.Response{Content: "Let's keep going. What would you like to try next?"}, nil
	}

	return &llms.Response{Content: fmt.Sprintf("I hear you said %q. Can you tell me a bit more about how you got there?", lastLine(prompt))}, nil
}

func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return text
}

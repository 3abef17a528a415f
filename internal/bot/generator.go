package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/copilotbot/copilot/internal/llm"
)

// FallbackResponse is the static terminal-failure reply used when the
// backend cannot produce a completion.
const FallbackResponse = "I'm having trouble responding right now. Please try again."

// defaultRetries is the fixed retry budget for backend calls. One retry,
// then the fallback takes over; the circuit breaker inside the client
// handles sustained outages.
const defaultRetries = 1

// Generator produces replies by calling the LLM backend with a fixed
// prompt shape: system instructions, optional prior-conversation context
// as an assistant turn, then the user message.
type Generator struct {
	backend llm.ChatCompleter
	retries int
}

// NewGenerator creates a Generator over the given backend client.
func NewGenerator(backend llm.ChatCompleter) *Generator {
	return &Generator{backend: backend, retries: defaultRetries}
}

// Generate returns the backend's reply text. On failure after retries it
// returns an error wrapping ErrGeneration; callers substitute
// FallbackResponse rather than surfacing the error to the user.
func (g *Generator) Generate(ctx context.Context, instructions, conversationContext, userMessage string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: instructions},
	}
	if conversationContext != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: "Conversation summary:\n" + conversationContext,
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		reply, err := g.backend.Complete(ctx, messages)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if attempt < g.retries {
			log.Printf("generator: backend call failed (attempt %d/%d): %v", attempt+1, g.retries+1, err)
		}
	}

	return "", fmt.Errorf("%w: %v", ErrGeneration, lastErr)
}

// Package llm provides chat-completion clients for the language-model
// backends the bot can talk to. All providers implement ChatCompleter and
// are selected through NewChatCompleter; calls are protected by a circuit
// breaker so a failing backend degrades fast instead of piling up requests.
package llm

import "context"

// Chat roles used in completion requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter is the interface for LLM chat completion.
type ChatCompleter interface {
	// Complete sends the message sequence to the backend and returns the
	// assistant reply text.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Model returns the model name the client is configured for.
	Model() string
}

// Sampling constants shared by all providers. The temperature is non-zero
// to avoid deterministic repetition but bounded for coherence; the token
// cap keeps replies within a couple of platform messages.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 400
)

package llm

import (
	"fmt"

	"github.com/copilotbot/copilot/internal/config"
)

// NewChatCompleter creates the appropriate ChatCompleter for the configured
// provider. Groq speaks the OpenAI chat-completions protocol, so it reuses
// the OpenAI client with a different base URL and default model.
func NewChatCompleter(cfg config.LLMConfig) (ChatCompleter, error) {
	switch cfg.Provider {
	case "groq", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.groq.com/openai"
		}
		model := cfg.Model
		if model == "" {
			model = "llama-3.1-8b-instant"
		}
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: model, BaseURL: baseURL}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "ollama":
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

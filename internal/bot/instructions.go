package bot

import (
	"context"
	"log"

	"github.com/copilotbot/copilot/internal/storage"
)

// DefaultInstructions is the compiled-in system prompt used when no active
// instructions record can be loaded.
const DefaultInstructions = "You are a helpful Discord bot assistant."

// InstructionsSource reads the operator-editable system prompt. The
// pipeline only ever reads; the admin API mutates the record.
type InstructionsSource struct {
	store storage.InstructionsStore
}

// NewInstructionsSource creates an InstructionsSource over the given store.
func NewInstructionsSource(store storage.InstructionsStore) *InstructionsSource {
	return &InstructionsSource{store: store}
}

// Active returns the current system instructions text, falling back to
// DefaultInstructions when the lookup fails or no record exists.
func (s *InstructionsSource) Active(ctx context.Context) string {
	rec, err := s.store.ActiveInstructions(ctx)
	if err != nil {
		log.Printf("instructions: lookup failed, using default: %v", err)
		return DefaultInstructions
	}
	if rec.Text == "" {
		return DefaultInstructions
	}
	return rec.Text
}

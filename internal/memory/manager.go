package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/copilotbot/copilot/internal/storage"
	"github.com/copilotbot/copilot/pkg/types"
)

// Manager owns the read-modify-write cycle of conversation memory. No other
// component mutates memory records; the admin API goes through the store's
// reset operations, which keep the same invariants.
type Manager struct {
	store storage.MemoryStore
}

// NewManager creates a Manager over the given store.
func NewManager(store storage.MemoryStore) *Manager {
	return &Manager{store: store}
}

// Read loads the memory record for a channel. A channel with no history
// returns (nil, nil); a store failure returns the error so the caller can
// log it and continue with empty state — reads are best-effort.
func (m *Manager) Read(ctx context.Context, channelID string) (*types.ConversationMemory, error) {
	mem, err := m.store.GetMemory(ctx, channelID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory read for channel %s: %w", channelID, err)
	}
	return mem, nil
}

// Exchange records one completed user/assistant exchange: both turns are
// appended to the rolling window (evicting oldest first past capacity), the
// summary is recomputed over the truncated window only, the exchange
// counter advances by 2, and the record is upserted.
//
// The returned error is deliberately for logging only: by the time Exchange
// runs the reply has already been delivered, so persistence failures must
// never surface to the user.
func (m *Manager) Exchange(ctx context.Context, channelID, userText, assistantText string) error {
	existing, err := m.store.GetMemory(ctx, channelID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("memory load for channel %s: %w", channelID, err)
	}

	mem := existing
	if mem == nil {
		mem = &types.ConversationMemory{ChannelID: channelID}
	}

	now := time.Now().UTC()
	window := WindowFrom(mem.RecentMessages, types.RecentWindowSize)
	window.Push(types.MessageEntry{Role: types.RoleUser, Content: userText, Timestamp: now})
	window.Push(types.MessageEntry{Role: types.RoleAssistant, Content: assistantText, Timestamp: now})

	mem.RecentMessages = window.Entries()
	mem.Summary = Summarize(mem.RecentMessages)
	mem.MessageCount += 2
	mem.LastMessageAt = now

	if err := m.store.UpsertMemory(ctx, mem); err != nil {
		return fmt.Errorf("memory write for channel %s: %w", channelID, err)
	}
	return nil
}

// ContextPrompt formats a memory record as prior-conversation context for
// the generation prompt. A nil record yields an empty string.
func (m *Manager) ContextPrompt(mem *types.ConversationMemory) string {
	if mem == nil {
		return ""
	}

	var b strings.Builder
	if mem.Summary != "" {
		b.WriteString("Previous conversation summary: ")
		b.WriteString(mem.Summary)
		b.WriteString("\n\n")
	}
	if len(mem.RecentMessages) > 0 {
		b.WriteString("Recent messages:\n")
		for _, msg := range mem.RecentMessages {
			role := "User"
			if msg.Role == types.RoleAssistant {
				role = "Assistant"
			}
			b.WriteString(role)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

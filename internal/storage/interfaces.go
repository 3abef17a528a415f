// Package storage provides the data-access contracts for the copilot bot.
//
// The layer is split into small, focused interfaces (memory, instructions,
// allow-list) that can be implemented independently and composed as needed.
// Both the SQLite and PostgreSQL backends implement all three.
package storage

import (
	"context"

	"github.com/copilotbot/copilot/pkg/types"
)

// MemoryStore persists per-channel conversation memory.
type MemoryStore interface {
	// GetMemory retrieves the memory record for a channel.
	// Returns ErrNotFound if no record exists yet.
	GetMemory(ctx context.Context, channelID string) (*types.ConversationMemory, error)

	// UpsertMemory creates or replaces the memory record for its channel
	// (keyed by channel_id: insert if absent, update if present).
	UpsertMemory(ctx context.Context, memory *types.ConversationMemory) error

	// ListMemories returns memory records ordered by last activity,
	// newest first, with pagination.
	ListMemories(ctx context.Context, opts ListOptions) (*PaginatedResult[types.ConversationMemory], error)

	// ResetMemory clears the conversational state for one channel.
	// Resetting a channel with no record is a no-op, not an error.
	ResetMemory(ctx context.Context, channelID string) error

	// ResetAllMemories clears every memory record and returns the number
	// of records touched.
	ResetAllMemories(ctx context.Context) (int, error)
}

// InstructionsStore persists the operator-editable system prompt.
// At most one record is active at any time.
type InstructionsStore interface {
	// ActiveInstructions returns the single active record.
	// Returns ErrNotFound when no active record exists.
	ActiveInstructions(ctx context.Context) (*types.SystemInstructions, error)

	// UpdateActiveInstructions replaces the text of the active record,
	// creating it if the table is empty, and returns the updated record.
	UpdateActiveInstructions(ctx context.Context, text string) (*types.SystemInstructions, error)
}

// ChannelStore persists the channel allow-list. Entries are soft-deleted:
// removal sets is_active to false and the row is kept.
type ChannelStore interface {
	// IsChannelAllowed reports whether an active allow-list entry exists
	// for the given platform channel ID.
	IsChannelAllowed(ctx context.Context, channelID string) (bool, error)

	// ListChannels returns all active entries, newest first.
	ListChannels(ctx context.Context) ([]*types.AllowedChannel, error)

	// GetChannel retrieves an entry by its row ID.
	// Returns ErrNotFound if the entry does not exist.
	GetChannel(ctx context.Context, id string) (*types.AllowedChannel, error)

	// AddChannel inserts a new allow-list entry. Re-adding a soft-deleted
	// channel reactivates the existing row; adding a channel that is
	// already active returns ErrDuplicate.
	AddChannel(ctx context.Context, entry *types.AllowedChannel) error

	// DeactivateChannel soft-deletes an entry by row ID.
	// Returns ErrNotFound if the entry does not exist.
	DeactivateChannel(ctx context.Context, id string) error
}

// Store is the full persistence surface the bot and admin API share.
type Store interface {
	MemoryStore
	InstructionsStore
	ChannelStore

	// Close releases any resources held by the store.
	Close() error
}

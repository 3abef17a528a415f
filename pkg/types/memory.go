// Package types defines the shared data model for the copilot bot:
// per-channel conversation memory, the active system instructions, and the
// channel allow-list. These shapes are shared between the message pipeline
// and the admin REST API, and map directly onto the persisted rows.
package types

import (
	"errors"
	"time"
)

// Message roles within a conversation exchange.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RecentWindowSize is the fixed capacity of the per-channel rolling window:
// 10 entries, i.e. the last 5 user/assistant exchange pairs.
const RecentWindowSize = 10

// MessageEntry is a single turn in a conversation. Entries are immutable
// once appended to a memory record.
type MessageEntry struct {
	Role      string    `json:"role"`      // "user" or "assistant"
	Content   string    `json:"content"`   // Raw message text
	Timestamp time.Time `json:"timestamp"` // When the turn was recorded
}

// ConversationMemory is the bounded conversational state for one channel.
// There is at most one record per channel ID. RecentMessages holds at most
// RecentWindowSize entries in chronological order; MessageCount only grows
// (by 2 per exchange) and is reset solely by an explicit operator action.
type ConversationMemory struct {
	ChannelID      string         `json:"channel_id"`
	Summary        string         `json:"summary"`         // Lexical digest of the current window, may be empty
	RecentMessages []MessageEntry `json:"recent_messages"` // Oldest first, len <= RecentWindowSize
	MessageCount   int            `json:"message_count"`
	LastMessageAt  time.Time      `json:"last_message_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Validation errors for memory records.
var (
	ErrEmptyChannelID = errors.New("channel ID is required")
	ErrWindowOverflow = errors.New("recent messages exceed window capacity")
	ErrBadRole        = errors.New("message role must be user or assistant")
)

// Validate checks the record invariants before persistence.
func (m *ConversationMemory) Validate() error {
	if m.ChannelID == "" {
		return ErrEmptyChannelID
	}
	if len(m.RecentMessages) > RecentWindowSize {
		return ErrWindowOverflow
	}
	for _, entry := range m.RecentMessages {
		if entry.Role != RoleUser && entry.Role != RoleAssistant {
			return ErrBadRole
		}
	}
	return nil
}

// Reset clears the conversational state while keeping the record itself.
// Used by the admin memory-reset endpoints; records are never deleted.
func (m *ConversationMemory) Reset(now time.Time) {
	m.Summary = ""
	m.RecentMessages = nil
	m.MessageCount = 0
	m.LastMessageAt = time.Time{}
	m.UpdatedAt = now
}

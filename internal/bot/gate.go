package bot

import (
	"context"
	"log"

	"github.com/copilotbot/copilot/internal/storage"
)

// AllowlistGate is the per-channel admission check. Direct messages bypass
// the gate entirely; server-scoped channels must have an active allow-list
// entry. A failing lookup fails closed: an unreachable config store must
// not let traffic through.
type AllowlistGate struct {
	channels storage.ChannelStore
}

// NewAllowlistGate creates a gate over the given channel store.
func NewAllowlistGate(channels storage.ChannelStore) *AllowlistGate {
	return &AllowlistGate{channels: channels}
}

// Allowed reports whether the event's channel may be answered.
func (g *AllowlistGate) Allowed(ctx context.Context, event Event) bool {
	if event.IsDirectMessage() {
		return true
	}

	allowed, err := g.channels.IsChannelAllowed(ctx, event.ChannelID)
	if err != nil {
		log.Printf("gate: allow-list lookup failed for channel %s, failing closed: %v", event.ChannelID, err)
		return false
	}
	return allowed
}

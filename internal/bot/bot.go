// Package bot implements the message-processing pipeline: admission
// filtering, prompt assembly, response generation with retry and fallback,
// chunked delivery, and best-effort memory persistence. The platform
// connector feeds events in; everything else is injected.
package bot

import (
	"context"
	"errors"
)

// Event is an inbound platform message event, already reduced to the fields
// the pipeline needs.
type Event struct {
	AuthorIsBot bool   // Message was written by a bot (including ourselves)
	ChannelID   string // Channel the message arrived in
	GuildID     string // Server scope; empty means direct message
	MentionsBot bool   // Our bot user was explicitly mentioned
	Content     string // Raw message text
}

// IsDirectMessage reports whether the event has no server scope.
func (e Event) IsDirectMessage() bool {
	return e.GuildID == ""
}

// Sender delivers outbound replies to the platform.
type Sender interface {
	Send(ctx context.Context, channelID, text string) error
}

// TypingNotifier triggers the platform's typing indicator. Optional and
// best-effort; a failure never affects the pipeline.
type TypingNotifier interface {
	TriggerTyping(ctx context.Context, channelID string) error
}

// Error taxonomy for the pipeline. Every error raised while handling one
// event is contained within that event's handling.
var (
	// ErrConfigUnavailable indicates an allow-list or instructions lookup
	// failed; the pipeline fails closed or falls back to defaults.
	ErrConfigUnavailable = errors.New("config unavailable")

	// ErrGeneration indicates the LLM backend could not produce a reply
	// after retries; the fallback response stands in.
	ErrGeneration = errors.New("generation failed")

	// ErrDelivery indicates an outbound send failed; remaining chunks are
	// aborted, never silently dropped.
	ErrDelivery = errors.New("delivery failed")
)

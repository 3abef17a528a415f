package bot

import (
	"context"
	"fmt"
)

// Discord rejects messages over 2000 characters. Long replies are split at
// a lower bound to leave headroom for markdown the platform may expand.
const (
	MaxMessageLength = 2000
	chunkLength      = 1900
)

// Dispatcher delivers reply text, splitting it into ordered chunks when it
// exceeds the platform's message-size limit.
type Dispatcher struct {
	sender Sender
}

// NewDispatcher creates a Dispatcher over the given sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Deliver sends text to the channel, chunking if needed. Chunks are sent
// sequentially in order; the first failed send aborts the remainder and is
// reported, so a partial delivery is never passed off as success.
func (d *Dispatcher) Deliver(ctx context.Context, channelID, text string) error {
	for i, chunk := range SplitMessage(text, chunkLength) {
		if err := d.sender.Send(ctx, channelID, chunk); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrDelivery, i+1, err)
		}
	}
	return nil
}

// SplitMessage splits text into maximal consecutive chunks of at most
// limit characters, preserving order. Splitting is done on runes so a
// multi-byte character is never torn across chunks.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Package memory manages per-channel conversational state: the fixed-size
// rolling window of recent messages, the lexical summary derived from it,
// and the read/exchange cycle against the backing store.
package memory

import "github.com/copilotbot/copilot/pkg/types"

// Window is a bounded deque of message entries. Pushing onto a full window
// evicts the oldest entry, so the window always holds the most recent
// entries in chronological order.
type Window struct {
	capacity int
	entries  []types.MessageEntry
}

// NewWindow creates an empty window with the given capacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = types.RecentWindowSize
	}
	return &Window{
		capacity: capacity,
		entries:  make([]types.MessageEntry, 0, capacity),
	}
}

// WindowFrom creates a window seeded with existing entries, keeping only
// the newest ones when there are more than the capacity.
func WindowFrom(entries []types.MessageEntry, capacity int) *Window {
	w := NewWindow(capacity)
	for _, e := range entries {
		w.Push(e)
	}
	return w
}

// Push appends an entry, evicting the oldest when the window is full.
func (w *Window) Push(entry types.MessageEntry) {
	if len(w.entries) == w.capacity {
		copy(w.entries, w.entries[1:])
		w.entries[len(w.entries)-1] = entry
		return
	}
	w.entries = append(w.entries, entry)
}

// Entries returns a copy of the window contents, oldest first.
func (w *Window) Entries() []types.MessageEntry {
	out := make([]types.MessageEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of entries currently held.
func (w *Window) Len() int {
	return len(w.entries)
}

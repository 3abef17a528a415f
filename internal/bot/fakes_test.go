package bot

import (
	"context"
	"errors"

	"github.com/copilotbot/copilot/internal/llm"
	"github.com/copilotbot/copilot/internal/storage"
	"github.com/copilotbot/copilot/pkg/types"
)

// fakeChannelStore implements storage.ChannelStore for gate tests.
type fakeChannelStore struct {
	allowed map[string]bool
	err     error
}

func (f *fakeChannelStore) IsChannelAllowed(_ context.Context, channelID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.allowed[channelID], nil
}

func (f *fakeChannelStore) ListChannels(context.Context) ([]*types.AllowedChannel, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChannelStore) GetChannel(context.Context, string) (*types.AllowedChannel, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeChannelStore) AddChannel(context.Context, *types.AllowedChannel) error {
	return errors.New("not implemented")
}

func (f *fakeChannelStore) DeactivateChannel(context.Context, string) error {
	return errors.New("not implemented")
}

// fakeInstructionsStore implements storage.InstructionsStore.
type fakeInstructionsStore struct {
	text string
	err  error
}

func (f *fakeInstructionsStore) ActiveInstructions(context.Context) (*types.SystemInstructions, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.SystemInstructions{ID: "ins-1", Text: f.text, Active: true}, nil
}

func (f *fakeInstructionsStore) UpdateActiveInstructions(context.Context, string) (*types.SystemInstructions, error) {
	return nil, errors.New("not implemented")
}

// fakeMemoryStore implements storage.MemoryStore with an in-memory map.
type fakeMemoryStore struct {
	records map[string]*types.ConversationMemory
	getErr  error
	putErr  error
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{records: map[string]*types.ConversationMemory{}}
}

func (f *fakeMemoryStore) GetMemory(_ context.Context, channelID string) (*types.ConversationMemory, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	mem, ok := f.records[channelID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *mem
	clone.RecentMessages = append([]types.MessageEntry(nil), mem.RecentMessages...)
	return &clone, nil
}

func (f *fakeMemoryStore) UpsertMemory(_ context.Context, memory *types.ConversationMemory) error {
	if f.putErr != nil {
		return f.putErr
	}
	clone := *memory
	clone.RecentMessages = append([]types.MessageEntry(nil), memory.RecentMessages...)
	f.records[memory.ChannelID] = &clone
	return nil
}

func (f *fakeMemoryStore) ListMemories(context.Context, storage.ListOptions) (*storage.PaginatedResult[types.ConversationMemory], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMemoryStore) ResetMemory(context.Context, string) error { return nil }

func (f *fakeMemoryStore) ResetAllMemories(context.Context) (int, error) { return 0, nil }

// fakeBackend implements llm.ChatCompleter with scripted replies.
type fakeBackend struct {
	replies  []string
	errs     []error
	calls    int
	requests [][]llm.Message
}

func (f *fakeBackend) Complete(_ context.Context, messages []llm.Message) (string, error) {
	idx := f.calls
	f.calls++
	f.requests = append(f.requests, messages)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.replies) {
		return f.replies[idx], nil
	}
	if len(f.replies) > 0 {
		return f.replies[len(f.replies)-1], nil
	}
	return "", errors.New("no scripted reply")
}

func (f *fakeBackend) Model() string { return "fake-model" }

// fakeSender records sends and can fail from a given call index.
type fakeSender struct {
	sent      []string
	channels  []string
	failAfter int // fail all sends once this many have succeeded; -1 never fails
}

func newFakeSender() *fakeSender {
	return &fakeSender{failAfter: -1}
}

func (f *fakeSender) Send(_ context.Context, channelID, text string) error {
	if f.failAfter >= 0 && len(f.sent) >= f.failAfter {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, text)
	f.channels = append(f.channels, channelID)
	return nil
}

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotbot/copilot/internal/storage"
	"github.com/copilotbot/copilot/pkg/types"
)

// newTestStore connects to the database named by POSTGRES_TEST_DSN, or skips
// the test when no test database is configured.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set; skipping PostgreSQL integration tests")
	}

	store, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, table := range []string{"conversation_memory", "system_instructions", "allowed_channels"} {
		_, err := store.db.ExecContext(ctx, "TRUNCATE TABLE "+table)
		require.NoError(t, err)
	}
	return store
}

func TestPostgresMemoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	mem := &types.ConversationMemory{
		ChannelID: "123456789012345678",
		Summary:   "Recent conversation about: releases",
		RecentMessages: []types.MessageEntry{
			{Role: types.RoleUser, Content: "hello", Timestamp: now},
			{Role: types.RoleAssistant, Content: "hi there", Timestamp: now},
		},
		MessageCount:  2,
		LastMessageAt: now,
	}
	require.NoError(t, store.UpsertMemory(ctx, mem))

	got, err := store.GetMemory(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	require.Len(t, got.RecentMessages, 2)
	assert.Equal(t, "hello", got.RecentMessages[0].Content)

	// Upsert replaces in place.
	mem.MessageCount = 4
	require.NoError(t, store.UpsertMemory(ctx, mem))
	got, err = store.GetMemory(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, 4, got.MessageCount)
}

func TestPostgresChannelLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &types.AllowedChannel{ChannelID: "123456789012345678", ChannelName: "general"}
	require.NoError(t, store.AddChannel(ctx, entry))

	allowed, err := store.IsChannelAllowed(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.ErrorIs(t, store.AddChannel(ctx, &types.AllowedChannel{ChannelID: "123456789012345678"}), storage.ErrDuplicate)

	require.NoError(t, store.DeactivateChannel(ctx, entry.ID))
	allowed, err = store.IsChannelAllowed(ctx, "123456789012345678")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestPostgresInstructions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ActiveInstructions(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rec, err := store.UpdateActiveInstructions(ctx, "You are a helpful Discord bot assistant.")
	require.NoError(t, err)
	assert.True(t, rec.Active)

	updated, err := store.UpdateActiveInstructions(ctx, "Be terse.")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, updated.ID)
}

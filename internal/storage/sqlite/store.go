// Package sqlite provides the SQLite implementation of the storage
// interfaces. It is the default backend: zero external services, a single
// file on disk, and CGO-free via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/copilotbot/copilot/internal/storage"
	"github.com/copilotbot/copilot/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database, configures WAL mode, and applies the
// schema. Use ":memory:" as the dsn for an ephemeral database in tests.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB exposes the database handle for callers that need raw access.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// GetMemory retrieves the memory record for a channel.
func (s *Store) GetMemory(ctx context.Context, channelID string) (*types.ConversationMemory, error) {
	if channelID == "" {
		return nil, fmt.Errorf("%w: channel ID is required", storage.ErrInvalidInput)
	}

	query := `
		SELECT channel_id, summary, recent_messages, message_count,
		       last_message_at, created_at, updated_at
		FROM conversation_memory
		WHERE channel_id = ?
	`

	var mem types.ConversationMemory
	var messagesJSON string
	var lastMessageAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, channelID).Scan(
		&mem.ChannelID,
		&mem.Summary,
		&messagesJSON,
		&mem.MessageCount,
		&lastMessageAt,
		&mem.CreatedAt,
		&mem.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get memory: %w", err)
	}

	if err := json.Unmarshal([]byte(messagesJSON), &mem.RecentMessages); err != nil {
		return nil, fmt.Errorf("sqlite: failed to decode recent messages: %w", err)
	}
	if lastMessageAt.Valid {
		mem.LastMessageAt = lastMessageAt.Time
	}

	return &mem, nil
}

// UpsertMemory creates or replaces the memory record for its channel.
func (s *Store) UpsertMemory(ctx context.Context, memory *types.ConversationMemory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}
	if err := memory.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	messagesJSON, err := json.Marshal(memory.RecentMessages)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode recent messages: %w", err)
	}

	now := time.Now().UTC()
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = now
	}
	memory.UpdatedAt = now

	query := `
		INSERT INTO conversation_memory (
			channel_id, summary, recent_messages, message_count,
			last_message_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			summary = excluded.summary,
			recent_messages = excluded.recent_messages,
			message_count = excluded.message_count,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		memory.ChannelID,
		memory.Summary,
		string(messagesJSON),
		memory.MessageCount,
		nullableTime(memory.LastMessageAt),
		memory.CreatedAt,
		memory.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert memory: %w", err)
	}
	return nil
}

// ListMemories returns memory records ordered by last activity, newest first.
func (s *Store) ListMemories(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.ConversationMemory], error) {
	opts.Normalize()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversation_memory").Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count memories: %w", err)
	}

	query := `
		SELECT channel_id, summary, recent_messages, message_count,
		       last_message_at, created_at, updated_at
		FROM conversation_memory
		ORDER BY last_message_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list memories: %w", err)
	}
	defer rows.Close()

	items := []types.ConversationMemory{}
	for rows.Next() {
		var mem types.ConversationMemory
		var messagesJSON string
		var lastMessageAt sql.NullTime

		if err := rows.Scan(
			&mem.ChannelID,
			&mem.Summary,
			&messagesJSON,
			&mem.MessageCount,
			&lastMessageAt,
			&mem.CreatedAt,
			&mem.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory row: %w", err)
		}
		if err := json.Unmarshal([]byte(messagesJSON), &mem.RecentMessages); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode recent messages: %w", err)
		}
		if lastMessageAt.Valid {
			mem.LastMessageAt = lastMessageAt.Time
		}
		items = append(items, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed reading memory rows: %w", err)
	}

	return &storage.PaginatedResult[types.ConversationMemory]{
		Items:   items,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(items) < total,
	}, nil
}

// ResetMemory clears the conversational state for one channel. The record
// itself is kept; resetting an unknown channel is a no-op.
func (s *Store) ResetMemory(ctx context.Context, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("%w: channel ID is required", storage.ErrInvalidInput)
	}

	query := `
		UPDATE conversation_memory
		SET summary = '', recent_messages = '[]', message_count = 0,
		    last_message_at = NULL, updated_at = ?
		WHERE channel_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), channelID); err != nil {
		return fmt.Errorf("sqlite: failed to reset memory: %w", err)
	}
	return nil
}

// ResetAllMemories clears every memory record.
func (s *Store) ResetAllMemories(ctx context.Context) (int, error) {
	query := `
		UPDATE conversation_memory
		SET summary = '', recent_messages = '[]', message_count = 0,
		    last_message_at = NULL, updated_at = ?
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to reset memories: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to count reset rows: %w", err)
	}
	return int(affected), nil
}

// ActiveInstructions returns the single active instructions record.
func (s *Store) ActiveInstructions(ctx context.Context) (*types.SystemInstructions, error) {
	query := `
		SELECT id, instructions, is_active, created_at, updated_at
		FROM system_instructions
		WHERE is_active = 1
	`

	var rec types.SystemInstructions
	err := s.db.QueryRowContext(ctx, query).Scan(
		&rec.ID, &rec.Text, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get instructions: %w", err)
	}
	return &rec, nil
}

// UpdateActiveInstructions replaces the text of the active record, creating
// the record when the table has no active row yet.
func (s *Store) UpdateActiveInstructions(ctx context.Context, text string) (*types.SystemInstructions, error) {
	if err := types.ValidateInstructionsText(text); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE system_instructions SET instructions = ?, updated_at = ? WHERE is_active = 1",
		text, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to update instructions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to check instructions update: %w", err)
	}
	if affected == 0 {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO system_instructions (id, instructions, is_active, created_at, updated_at) VALUES (?, ?, 1, ?, ?)",
			uuid.NewString(), text, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to insert instructions: %w", err)
		}
	}

	return s.ActiveInstructions(ctx)
}

// IsChannelAllowed reports whether an active allow-list entry exists.
func (s *Store) IsChannelAllowed(ctx context.Context, channelID string) (bool, error) {
	if channelID == "" {
		return false, fmt.Errorf("%w: channel ID is required", storage.ErrInvalidInput)
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM allowed_channels WHERE channel_id = ? AND is_active = 1",
		channelID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to check allow-list: %w", err)
	}
	return count > 0, nil
}

// ListChannels returns all active allow-list entries, newest first.
func (s *Store) ListChannels(ctx context.Context) ([]*types.AllowedChannel, error) {
	query := `
		SELECT id, channel_id, channel_name, server_id, server_name,
		       is_active, created_at, updated_at
		FROM allowed_channels
		WHERE is_active = 1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list channels: %w", err)
	}
	defer rows.Close()

	entries := []*types.AllowedChannel{}
	for rows.Next() {
		entry, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed reading channel rows: %w", err)
	}
	return entries, nil
}

// GetChannel retrieves an allow-list entry by row ID.
func (s *Store) GetChannel(ctx context.Context, id string) (*types.AllowedChannel, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	query := `
		SELECT id, channel_id, channel_name, server_id, server_name,
		       is_active, created_at, updated_at
		FROM allowed_channels
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	entry, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AddChannel inserts a new allow-list entry, or reactivates a soft-deleted
// row for the same channel. An already-active channel is ErrDuplicate.
func (s *Store) AddChannel(ctx context.Context, entry *types.AllowedChannel) error {
	if entry == nil {
		return storage.ErrInvalidInput
	}
	if err := types.ValidateChannelID(entry.ChannelID); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	now := time.Now().UTC()

	var existingID string
	var active bool
	err := s.db.QueryRowContext(ctx,
		"SELECT id, is_active FROM allowed_channels WHERE channel_id = ?",
		entry.ChannelID,
	).Scan(&existingID, &active)

	switch {
	case err == nil && active:
		return fmt.Errorf("%w: channel %s", storage.ErrDuplicate, entry.ChannelID)

	case err == nil:
		// Soft-deleted row: re-adding reactivates it in place.
		_, err = s.db.ExecContext(ctx, `
			UPDATE allowed_channels
			SET channel_name = ?, server_id = ?, server_name = ?,
			    is_active = 1, updated_at = ?
			WHERE id = ?
		`, entry.ChannelName, entry.ServerID, entry.ServerName, now, existingID)
		if err != nil {
			return fmt.Errorf("sqlite: failed to reactivate channel: %w", err)
		}
		entry.ID = existingID
		entry.Active = true
		entry.UpdatedAt = now
		return nil

	case errors.Is(err, sql.ErrNoRows):
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.Active = true
		entry.CreatedAt = now
		entry.UpdatedAt = now
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO allowed_channels (
				id, channel_id, channel_name, server_id, server_name,
				is_active, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		`, entry.ID, entry.ChannelID, entry.ChannelName, entry.ServerID, entry.ServerName, now, now)
		if err != nil {
			return fmt.Errorf("sqlite: failed to add channel: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("sqlite: failed to check existing channel: %w", err)
	}
}

// DeactivateChannel soft-deletes an allow-list entry by row ID.
func (s *Store) DeactivateChannel(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE allowed_channels SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to deactivate channel: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check deactivation: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan code.
type scanner interface {
	Scan(dest ...any) error
}

func scanChannel(row scanner) (*types.AllowedChannel, error) {
	var entry types.AllowedChannel
	err := row.Scan(
		&entry.ID,
		&entry.ChannelID,
		&entry.ChannelName,
		&entry.ServerID,
		&entry.ServerName,
		&entry.Active,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to scan channel row: %w", err)
	}
	return &entry, nil
}

// nullableTime converts a zero time into a SQL NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

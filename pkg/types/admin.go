package types

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// SystemInstructions is the operator-editable system prompt. Exactly one
// record is active at any time; the pipeline reads the active row, the admin
// API mutates it.
type SystemInstructions struct {
	ID        string    `json:"id"`
	Text      string    `json:"instructions"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllowedChannel is one allow-list entry. Removal is logical (Active=false)
// rather than a row delete, which keeps audit history and makes re-adding a
// channel idempotent.
type AllowedChannel struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name,omitempty"`
	ServerID    string    `json:"server_id,omitempty"`
	ServerName  string    `json:"server_name,omitempty"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Discord snowflake IDs are 18-20 decimal digits.
var channelIDPattern = regexp.MustCompile(`^\d{18,20}$`)

// Validation errors for admin records.
var (
	ErrEmptyInstructions = errors.New("instructions cannot be empty")
	ErrBadChannelID      = errors.New("channel ID must be 18-20 digits")
)

// ValidateInstructionsText rejects blank instruction text.
func ValidateInstructionsText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInstructions
	}
	return nil
}

// ValidateChannelID checks the Discord snowflake format.
func ValidateChannelID(channelID string) error {
	if !channelIDPattern.MatchString(channelID) {
		return ErrBadChannelID
	}
	return nil
}

// AddChannelRequest is the request body for POST /api/channels.
type AddChannelRequest struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name,omitempty"`
	ServerID    string `json:"server_id,omitempty"`
	ServerName  string `json:"server_name,omitempty"`
}

// UpdateInstructionsRequest is the request body for POST /api/instructions.
type UpdateInstructionsRequest struct {
	Instructions string `json:"instructions"`
}

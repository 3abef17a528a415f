package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/copilotbot/copilot/internal/storage"
	"github.com/copilotbot/copilot/pkg/types"
)

// APIHandlers contains the HTTP handlers for the admin REST API.
type APIHandlers struct {
	store storage.Store
}

// NewAPIHandlers creates a new APIHandlers instance over the given store.
func NewAPIHandlers(store storage.Store) *APIHandlers {
	return &APIHandlers{store: store}
}

// Register attaches all routes to the mux.
func (h *APIHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/instructions", h.GetInstructions)
	mux.HandleFunc("POST /api/instructions", h.UpdateInstructions)

	mux.HandleFunc("GET /api/channels", h.ListChannels)
	mux.HandleFunc("POST /api/channels", h.AddChannel)
	mux.HandleFunc("GET /api/channels/{id}", h.GetChannel)
	mux.HandleFunc("DELETE /api/channels/{id}", h.RemoveChannel)

	mux.HandleFunc("GET /api/memory", h.ListMemories)
	mux.HandleFunc("POST /api/memory/reset-all", h.ResetAllMemories)
	mux.HandleFunc("GET /api/memory/{channelId}", h.GetMemory)
	mux.HandleFunc("DELETE /api/memory/{channelId}", h.ResetMemory)

	mux.HandleFunc("GET /api/health", h.Health)
}

// Health handles GET /api/health.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInstructions handles GET /api/instructions - return the active
// system instructions record.
func (h *APIHandlers) GetInstructions(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.ActiveInstructions(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no active instructions", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get instructions", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// UpdateInstructions handles POST /api/instructions - replace the active
// system instructions text.
func (h *APIHandlers) UpdateInstructions(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateInstructionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := types.ValidateInstructionsText(req.Instructions); err != nil {
		respondError(w, http.StatusBadRequest, "invalid instructions", err)
		return
	}

	rec, err := h.store.UpdateActiveInstructions(r.Context(), req.Instructions)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update instructions", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// ListChannels handles GET /api/channels - list active allow-list
// entries, newest first.
func (h *APIHandlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.ListChannels(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list channels", err)
		return
	}
	if channels == nil {
		channels = []*types.AllowedChannel{}
	}
	respondJSON(w, http.StatusOK, channels)
}

// AddChannel handles POST /api/channels - add a channel to the allow-list.
func (h *APIHandlers) AddChannel(w http.ResponseWriter, r *http.Request) {
	var req types.AddChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := types.ValidateChannelID(req.ChannelID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid channel ID", err)
		return
	}

	entry := &types.AllowedChannel{
		ChannelID:   req.ChannelID,
		ChannelName: req.ChannelName,
		ServerID:    req.ServerID,
		ServerName:  req.ServerName,
		Active:      true,
	}
	if err := h.store.AddChannel(r.Context(), entry); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			respondError(w, http.StatusConflict, "channel already allowed", err)
			return
		}
		if errors.Is(err, storage.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, "invalid channel", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to add channel", err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// GetChannel handles GET /api/channels/{id} - get one allow-list entry by
// row ID.
func (h *APIHandlers) GetChannel(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "channel ID is required", nil)
		return
	}

	entry, err := h.store.GetChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "channel not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get channel", err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// RemoveChannel handles DELETE /api/channels/{id} - soft-delete an
// allow-list entry.
func (h *APIHandlers) RemoveChannel(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "channel ID is required", nil)
		return
	}

	if err := h.store.DeactivateChannel(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "channel not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to remove channel", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed", "id": id})
}

// ListMemories handles GET /api/memory - list memory records ordered by
// last activity with pagination.
func (h *APIHandlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Limit:  parseInt(r.URL.Query().Get("limit"), 0),
		Offset: parseInt(r.URL.Query().Get("offset"), 0),
	}
	opts.Normalize()

	result, err := h.store.ListMemories(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list memories", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetMemory handles GET /api/memory/{channelId} - get one channel's
// memory record.
func (h *APIHandlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	channelID := extractID(r, "channelId")
	if channelID == "" {
		respondError(w, http.StatusBadRequest, "channel ID is required", nil)
		return
	}

	memory, err := h.store.GetMemory(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "memory not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get memory", err)
		return
	}
	respondJSON(w, http.StatusOK, memory)
}

// ResetMemory handles DELETE /api/memory/{channelId} - clear one
// channel's conversational state. Resetting an unknown channel succeeds.
func (h *APIHandlers) ResetMemory(w http.ResponseWriter, r *http.Request) {
	channelID := extractID(r, "channelId")
	if channelID == "" {
		respondError(w, http.StatusBadRequest, "channel ID is required", nil)
		return
	}

	if err := h.store.ResetMemory(r.Context(), channelID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reset memory", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset", "channel_id": channelID})
}

// ResetAllMemories handles POST /api/memory/reset-all - clear every
// channel's conversational state.
func (h *APIHandlers) ResetAllMemories(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.ResetAllMemories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reset memories", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "reset", "count": count})
}

// extractID extracts a path parameter using Go 1.22+ pattern matching.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing more can be written.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}
	respondJSON(w, statusCode, errResp)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotbot/copilot/internal/config"
	"github.com/copilotbot/copilot/internal/storage/sqlite"
	"github.com/copilotbot/copilot/pkg/types"
)

func newTestMux(t *testing.T) (*http.ServeMux, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	mux := http.NewServeMux()
	NewAPIHandlers(store).Register(mux)
	return mux, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestInstructionsEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)

	t.Run("get before any update returns 404", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/instructions", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("post creates the active record", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/instructions",
			types.UpdateInstructionsRequest{Instructions: "Answer in haiku."})
		require.Equal(t, http.StatusOK, rec.Code)

		var got types.SystemInstructions
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Answer in haiku.", got.Text)
		assert.True(t, got.Active)
	})

	t.Run("get returns the updated record", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/instructions", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got types.SystemInstructions
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Answer in haiku.", got.Text)
	})

	t.Run("blank instructions are rejected", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/instructions",
			types.UpdateInstructionsRequest{Instructions: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChannelEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)

	addReq := types.AddChannelRequest{
		ChannelID:   "123456789012345678",
		ChannelName: "general",
		ServerID:    "987654321098765432",
	}

	t.Run("add returns 201", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/channels", addReq)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("duplicate add returns 409", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/channels", addReq)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad snowflake returns 400", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/channels",
			types.AddChannelRequest{ChannelID: "not-a-snowflake"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var rowID string
	t.Run("list shows the active entry", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/channels", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []*types.AllowedChannel
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "123456789012345678", got[0].ChannelID)
		rowID = got[0].ID
	})

	t.Run("get by row ID", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/channels/"+rowID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got types.AllowedChannel
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "general", got.ChannelName)
	})

	t.Run("delete soft-removes the entry", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodDelete, "/api/channels/"+rowID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		listRec := doJSON(t, mux, http.MethodGet, "/api/channels", nil)
		var got []*types.AllowedChannel
		require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &got))
		assert.Empty(t, got)
	})

	t.Run("delete unknown row returns 404", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodDelete, "/api/channels/no-such-row", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMemoryEndpoints(t *testing.T) {
	mux, store := newTestMux(t)
	ctx := context.Background()

	seed := func(channelID string, at time.Time) {
		err := store.UpsertMemory(ctx, &types.ConversationMemory{
			ChannelID: channelID,
			Summary:   "Recent conversation about: testing",
			RecentMessages: []types.MessageEntry{
				{Role: types.RoleUser, Content: "hi", Timestamp: at},
				{Role: types.RoleAssistant, Content: "hello", Timestamp: at},
			},
			MessageCount:  2,
			LastMessageAt: at,
		})
		require.NoError(t, err)
	}
	base := time.Now().UTC().Truncate(time.Second)
	seed("100000000000000001", base.Add(-time.Hour))
	seed("100000000000000002", base)

	t.Run("list orders by last activity with envelope", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/memory?limit=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Items   []types.ConversationMemory `json:"items"`
			Total   int                        `json:"total"`
			HasMore bool                       `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Items, 1)
		assert.Equal(t, "100000000000000002", body.Items[0].ChannelID)
		assert.Equal(t, 2, body.Total)
		assert.True(t, body.HasMore)
	})

	t.Run("get one memory", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/memory/100000000000000001", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got types.ConversationMemory
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got.RecentMessages, 2)
	})

	t.Run("get unknown memory returns 404", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/memory/100000000000000009", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reset clears one channel and is idempotent", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodDelete, "/api/memory/100000000000000001", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		mem, err := store.GetMemory(ctx, "100000000000000001")
		require.NoError(t, err)
		assert.Empty(t, mem.RecentMessages)
		assert.Zero(t, mem.MessageCount)

		again := doJSON(t, mux, http.MethodDelete, "/api/memory/100000000000000001", nil)
		assert.Equal(t, http.StatusOK, again.Code)
	})

	t.Run("reset-all reports the count", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/memory/reset-all", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count"`)
	})
}

func TestRequireAuth(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("development mode skips auth", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Security.Mode = "development"

		rec := httptest.NewRecorder()
		RequireAuth(inner, cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("production rejects a missing token", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Security.Mode = "production"
		cfg.Security.APIToken = "expected"

		rec := httptest.NewRecorder()
		RequireAuth(inner, cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("production accepts the right token", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Security.Mode = "production"
		cfg.Security.APIToken = "expected"

		req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
		req.Header.Set("Authorization", "Bearer expected")
		rec := httptest.NewRecorder()
		RequireAuth(inner, cfg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("production with no configured token rejects everyone", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Security.Mode = "production"

		req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
		req.Header.Set("Authorization", "Bearer anything")
		rec := httptest.NewRecorder()
		RequireAuth(inner, cfg).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limited := RateLimitMiddleware(inner, NewRateLimiter(1, 2))

	codes := make([]int, 0, 4)
	for range 4 {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Contains(t, codes[2:], http.StatusTooManyRequests)
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestErrorResponseShape(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/channels",
		types.AddChannelRequest{ChannelID: "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid channel ID", body.Error)
	assert.Equal(t, "Bad Request", body.Code)
	assert.True(t, strings.Contains(rec.Header().Get("Content-Type"), "application/json"))
}

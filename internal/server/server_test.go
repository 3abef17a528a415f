package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copilotbot/copilot/internal/config"
	"github.com/copilotbot/copilot/internal/storage/sqlite"
)

func startTestServer(t *testing.T, mode, token string) string {
	t.Helper()

	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	cfg.Admin.Host = "127.0.0.1"
	cfg.Admin.Port = 0
	cfg.Security.Mode = mode
	cfg.Security.APIToken = token

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr, err := Start(ctx, cfg, store)
	require.NoError(t, err)
	return addr
}

func TestServerServesHealth(t *testing.T) {
	addr := startTestServer(t, "development", "")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var health map[string]string
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health["status"])
}

func TestServerEnforcesAuthInProduction(t *testing.T) {
	addr := startTestServer(t, "production", "admin-token")
	client := &http.Client{Timeout: 5 * time.Second}

	t.Run("no token is rejected", func(t *testing.T) {
		resp, err := client.Get("http://" + addr + "/api/channels")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bearer token is accepted", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "http://"+addr+"/api/channels", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer admin-token")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestServerSetsSecurityHeaders(t *testing.T) {
	addr := startTestServer(t, "development", "")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

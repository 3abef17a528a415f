package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RESTClient sends messages and typing indicators through the Discord
// HTTP API. A client-side rate limiter keeps well under the global
// request ceiling; per-route 429 handling is left to Discord's
// Retry-After on the rare overflow.
type RESTClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewRESTClient creates a REST client. baseURL is normally
// https://discord.com/api/v10.
func NewRESTClient(token, baseURL string) *RESTClient {
	return &RESTClient{
		token:   token,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		// Discord's global limit is 50 requests/second; stay under it.
		limiter: rate.NewLimiter(rate.Limit(40), 40),
	}
}

// Send posts a message to the channel.
func (c *RESTClient) Send(ctx context.Context, channelID, text string) error {
	body, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.post(ctx, fmt.Sprintf("/channels/%s/messages", channelID), body)
}

// TriggerTyping starts the typing indicator in the channel. The indicator
// is cosmetic; callers treat failures as non-fatal.
func (c *RESTClient) TriggerTyping(ctx context.Context, channelID string) error {
	return c.post(ctx, fmt.Sprintf("/channels/%s/typing", channelID), nil)
}

func (c *RESTClient) post(ctx context.Context, path string, body []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord api returned status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

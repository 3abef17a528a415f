// Package server provides HTTP server initialization and lifecycle
// management for the admin API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/copilotbot/copilot/internal/config"
	"github.com/copilotbot/copilot/internal/storage"
	"github.com/copilotbot/copilot/web/handlers"
)

// Start initializes and starts the admin HTTP server. It returns the
// actual address being listened on (useful for testing with port 0); the
// server stops when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, store storage.Store) (string, error) {
	mux := http.NewServeMux()
	handlers.NewAPIHandlers(store).Register(mux)

	// Auth wraps the API prefix; rate limiting and headers wrap everything.
	root := http.NewServeMux()
	root.Handle("/api/", handlers.RequireAuth(mux, cfg))

	rateLimiter := handlers.NewRateLimiter(10.0, 20)
	handler := handlers.RateLimitMiddleware(root, rateLimiter)
	handler = handlers.SecurityHeaders(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown error: %v", err)
		}
	}()

	log.Printf("admin API listening on %s", actualAddr)
	return actualAddr, nil
}

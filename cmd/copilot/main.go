package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copilotbot/copilot/internal/bot"
	"github.com/copilotbot/copilot/internal/config"
	"github.com/copilotbot/copilot/internal/discord"
	"github.com/copilotbot/copilot/internal/llm"
	"github.com/copilotbot/copilot/internal/memory"
	"github.com/copilotbot/copilot/internal/server"
	"github.com/copilotbot/copilot/internal/storage"
	"github.com/copilotbot/copilot/internal/storage/postgres"
	"github.com/copilotbot/copilot/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional, env vars override)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	backend, err := llm.NewChatCompleter(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM backend: %v", err)
	}
	log.Printf("Using LLM provider %s (model %s)", cfg.LLM.Provider, backend.Model())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rest := discord.NewRESTClient(cfg.Discord.Token, cfg.Discord.APIBaseURL)
	router := bot.NewRouter(
		bot.NewAllowlistGate(store),
		bot.NewInstructionsSource(store),
		memory.NewManager(store),
		bot.NewGenerator(backend),
		bot.NewDispatcher(rest),
		rest,
	)

	if cfg.Admin.Enabled {
		addr, err := server.Start(ctx, cfg, store)
		if err != nil {
			log.Fatalf("Failed to start admin server: %v", err)
		}
		log.Printf("Admin API running at http://%s", addr)
	}

	gateway := discord.NewGateway(cfg.Discord.Token, cfg.Discord.GatewayURL, router)
	go func() {
		if err := gateway.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Gateway stopped: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore creates the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.NewStore(cfg.Storage.PostgresDSN)
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, err
		}
		return sqlite.NewStore(cfg.Storage.DataPath + "/copilot.db")
	}
}

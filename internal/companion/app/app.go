// Package app wires the companion service together: store, conversation
// memory, completion client, chat service, and the HTTP API.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/companion-labs/companion/common/spec/persona"
	"github.com/companion-labs/companion/internal/companion/chat"
	"github.com/companion-labs/companion/internal/companion/llm"
	"github.com/companion-labs/companion/internal/companion/memory"
	"github.com/companion-labs/companion/internal/companion/store"
)

// Config holds the assembled configuration for the application.
type Config struct {
	// Addr is the HTTP listen address (e.g. ":3000").
	Addr string
	// DatabasePath is the SQLite database file.
	DatabasePath string
	// OpenAI configures the upstream completion client.
	OpenAI llm.OpenAIConfig
	// Chat configures the orchestration service.
	Chat chat.Config
	// MaxTotalMessages caps the retained conversation memory.
	MaxTotalMessages int
	// PersonaSeedFile optionally points at a YAML persona pack loaded at
	// startup. Empty means no extra seeding beyond the migrations.
	PersonaSeedFile string
}

// App owns the service's long-lived resources.
type App struct {
	cfg     Config
	store   *store.Store
	log     *memory.Log
	service *chat.Service
	server  *Server
}

// New constructs the application: opens the store (running migrations),
// loads any persona seed pack, and wires the chat service and HTTP server.
func New(cfg Config) (*App, error) {
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	if cfg.PersonaSeedFile != "" {
		if err := seedPersonas(st, cfg.PersonaSeedFile); err != nil {
			st.Close()
			return nil, err
		}
	}

	log := memory.NewLog(cfg.MaxTotalMessages)
	provider := llm.NewOpenAI(cfg.OpenAI)
	service := chat.NewService(log, provider, st, cfg.Chat)
	server := NewServer(cfg.Addr, service, st, log, cfg.OpenAI.APIKey)

	return &App{
		cfg:     cfg,
		store:   st,
		log:     log,
		service: service,
		server:  server,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop releases the application's resources.
func (a *App) Stop() {
	a.server.Stop()
	if err := a.store.Close(); err != nil {
		slog.Warn("app: closing store", "err", err)
	}
}

// seedPersonas loads a persona pack and inserts entries whose names are not
// already present. Existing profiles are never modified.
func seedPersonas(st *store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("app: read persona seed file: %w", err)
	}
	pack, err := persona.Parse(data)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	ctx := context.Background()
	existing, err := st.ListPersonalities(ctx)
	if err != nil {
		return fmt.Errorf("app: list personalities: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, p := range existing {
		known[p.Name] = true
	}

	for _, p := range pack.Personas {
		if known[p.Name] {
			continue
		}
		if _, err := st.CreatePersonality(ctx, store.PersonalityFields{
			Name:     p.Name,
			Emotion:  p.Emotion,
			Attitude: p.Attitude,
			Opinions: p.Opinions,
		}); err != nil {
			return fmt.Errorf("app: seed persona %q: %w", p.Name, err)
		}
		slog.Info("seeded persona", "name", p.Name)
	}
	return nil
}

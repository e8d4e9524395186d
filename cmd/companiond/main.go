package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/companion-labs/companion/common/environment"
	"github.com/companion-labs/companion/common/version"
	"github.com/companion-labs/companion/internal/companion/app"
	"github.com/companion-labs/companion/internal/companion/chat"
	"github.com/companion-labs/companion/internal/companion/llm"
	"github.com/companion-labs/companion/internal/companion/observability"
)

func main() {
	fmt.Printf("Companion Server %s\n", version.Info())

	observability.Setup(
		environment.StringOr("LOG_LEVEL", "info"),
		environment.StringOr("LOG_FORMAT", "text"),
	)

	config, err := loadConfig()
	if err != nil {
		// Exit non-zero so deployments fail early on missing credentials.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	companion, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize companion: %v\n", err)
		os.Exit(1)
	}
	defer companion.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := companion.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error running companion: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig assembles the application configuration from environment
// variables. Only the upstream API credential is mandatory; everything else
// has a documented default.
func loadConfig() (app.Config, error) {
	apiKey, err := environment.RequiredString("OPENAI_API_KEY")
	if err != nil {
		return app.Config{}, err
	}

	temperature := environment.Float64Or("OPENAI_TEMPERATURE", llm.DefaultTemperature)

	return app.Config{
		Addr:         ":" + environment.StringOr("PORT", "3000"),
		DatabasePath: environment.StringOr("DATABASE_PATH", "./companion.db"),
		OpenAI: llm.OpenAIConfig{
			APIKey:      apiKey,
			BaseURL:     environment.StringOr("OPENAI_BASE_URL", ""),
			Model:       environment.StringOr("OPENAI_MODEL", ""),
			MaxTokens:   environment.IntOr("OPENAI_MAX_TOKENS", 0),
			Temperature: &temperature,
			Timeout:     environment.DurationOr("OPENAI_TIMEOUT", llm.DefaultTimeout),
		},
		Chat: chat.Config{
			MaxContext:      environment.IntOr("MAX_MEMORY_MESSAGES", chat.DefaultMaxContext),
			RateLimit:       environment.IntOr("RATE_LIMIT_MAX", chat.DefaultRateLimit),
			UpstreamTimeout: environment.DurationOr("OPENAI_TIMEOUT", llm.DefaultTimeout),
		},
		MaxTotalMessages: environment.IntOr("MAX_TOTAL_MESSAGES", 0),
		PersonaSeedFile:  environment.StringOr("PERSONA_SEED_FILE", ""),
	}, nil
}

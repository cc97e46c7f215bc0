package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"techchat/internal/answer"
	"techchat/internal/config"
	"techchat/internal/gemini"
	"techchat/internal/history"
	"techchat/internal/ollama"
	"techchat/internal/ui"
)

// openStore opens the history store on the configured backend. The returned
// func releases the backend.
func openStore(c *config.Config, log *slog.Logger) (*history.Store, func() error, error) {
	switch c.Storage {
	case config.StorageSQLite:
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		backend, err := history.OpenSQLiteBackend(c.HistoryPath())
		if err != nil {
			return nil, nil, err
		}
		return history.NewStore(backend, c.MaxHistorySize, log), backend.Close, nil
	default:
		backend, err := history.NewFileBackend(c.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return history.NewStore(backend, c.MaxHistorySize, log), func() error { return nil }, nil
	}
}

// newGenerator builds the answer backend for the configured provider
func newGenerator(c *config.Config) answer.Generator {
	if c.Provider == config.ProviderOllama {
		return ollama.NewClient(c.OllamaURL, c.ModelName, c.RequestTimeout)
	}
	return gemini.NewClient(c.GeminiURL, c.GeminiAPIKey, c.ModelName, c.RequestTimeout, c.RequestsPerMinute)
}

// checkProvider verifies a local Ollama server is up and has the model.
// Hosted providers are not probed; a bad key shows up as the fallback answer.
func checkProvider(ctx context.Context, gen answer.Generator, display *ui.Display) error {
	client, ok := gen.(*ollama.Client)
	if !ok {
		return nil
	}

	if err := client.HealthCheck(ctx); err != nil {
		display.PrintError(err)
		display.PrintInfo("Make sure Ollama is running: ollama serve")
		return err
	}

	if err := client.CheckModel(ctx); err != nil {
		display.PrintError(err)
		if models, listErr := client.ListModels(ctx); listErr == nil && len(models) > 0 {
			display.PrintInfo("Available models:")
			for _, m := range models {
				display.PrintInfo("  - " + m)
			}
		}
		return err
	}
	return nil
}

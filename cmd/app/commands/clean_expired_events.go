package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/allisson/webhook-ledger/internal/app"
	"github.com/allisson/webhook-ledger/internal/config"
)

// RunCleanExpiredEvents deletes event records whose retention TTL has lapsed.
// Supports both text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredEvents(ctx context.Context, format string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("cleaning expired event records")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get webhook use case from container
	webhookUseCase, err := container.WebhookUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize webhook use case: %w", err)
	}

	// Execute deletion
	count, err := webhookUseCase.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired event records: %w", err)
	}

	// Output result based on format
	if format == "json" {
		outputCleanJSON(count)
	} else {
		outputCleanText(count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))

	return nil
}

// outputCleanText outputs the result in human-readable text format.
func outputCleanText(count int64) {
	fmt.Printf("Successfully deleted %d expired event record(s)\n", count)
}

// outputCleanJSON outputs the result in JSON format for machine consumption.
func outputCleanJSON(count int64) {
	result := map[string]interface{}{
		"count": count,
	}
	encoder := json.NewEncoder(os.Stdout)
	_ = encoder.Encode(result)
}

// Package logging configures the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// Init installs a JSON handler in production and a human-readable text
// handler otherwise, selected by the ENVIRONMENT variable.
func Init(environment string) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithPair returns a logger scoped to a single (character, user) pair.
func WithPair(logger *slog.Logger, characterID, userID string) *slog.Logger {
	return logger.With("character_id", characterID, "user_id", userID)
}

// WithTurn returns a logger scoped to a single orchestrator turn.
func WithTurn(logger *slog.Logger, turnID string) *slog.Logger {
	return logger.With("turn_id", turnID)
}

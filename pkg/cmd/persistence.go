package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/persistence/file"
	"github.com/fieldline/automation/pkg/persistence/postgresql"
)

// NewPersistence creates a store from the database URL scheme. Postgres is
// the deployment store; anything else is treated as a file store root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}

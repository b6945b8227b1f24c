package driver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agenthands/kwmerge/internal/config"
)

// Open connects the backend named by cfg.Driver and applies its schema.
func Open(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (KeywordStore, error) {
	var (
		store KeywordStore
		err   error
	)

	switch cfg.Driver {
	case "sqlite":
		store, err = OpenSQLite(cfg.SQLite.Path)
	case "postgres":
		store, err = OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
	case "memgraph":
		store, err = NewMemgraphStore(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
	case "memory":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Driver, err)
	}

	if err := store.BuildIndices(ctx); err != nil {
		store.Close(ctx)
		return nil, err
	}

	log.Info().Str("driver", cfg.Driver).Msg("keyword store ready")
	return store, nil
}

//go:build integration

package integration

import (
	"os"
	"testing"

	"github.com/joho/godotenv"

	"github.com/agenthands/kwmerge/internal/config"
)

func TestPostgresFlow(t *testing.T) {
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: POSTGRES_DSN not set")
	}

	store := openStore(t, config.StoreConfig{
		Driver:   "postgres",
		Postgres: config.PostgresConfig{DSN: dsn, MaxOpenConns: 4},
	})
	runKeywordFlow(t, store)
}

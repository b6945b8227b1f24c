//go:build integration

package integration

import (
	"path/filepath"
	"testing"

	"github.com/agenthands/kwmerge/internal/config"
)

// TestSQLiteFileFlow runs against a database file so commits go through the
// same connection pool path as a deployed service.
func TestSQLiteFileFlow(t *testing.T) {
	store := openStore(t, config.StoreConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "kwmerge.db")},
	})
	runKeywordFlow(t, store)
}

// Package testing provides test helpers shared across horizon packages.
package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aristath/horizon/internal/database"
)

// NewTestDB creates a file-backed SQLite database under t.TempDir with its
// schema applied. The database is closed when the test ends.
//
// Supported schema names:
//   - "portfolio" - applies portfolio_schema.sql
//   - "cache" - applies cache_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), fmt.Sprintf("%s.db", name)),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})
	return db
}

package testutil

import (
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/gqlboot/internal/db"
)

// NewTestDB opens an in-memory SQLite DB and runs all goose migrations.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// Use a file URI with shared cache so all pool connections share the
	// same in-memory database. Each test gets a unique name to avoid
	// cross-test interference.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.New("sqlite3", "file:"+name+"?mode=memory&cache=shared&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(conn, "sqlite3"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return conn
}

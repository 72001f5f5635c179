// Package testutil provides database fixtures shared by repository and
// service tests.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/avelichko/focusbot/internal/db"
)

// NewTestDB opens a migrated in-memory SQLite database that is closed when
// the test finishes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// NewTestUoW wraps the test database in a UnitOfWork.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

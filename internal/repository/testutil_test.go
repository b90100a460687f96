package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mlefevre/boutique-api/internal/database"
	"github.com/mlefevre/boutique-api/internal/model"
)

// newTestDB opens an in-memory SQLite database with the application schema.
// A single pooled connection keeps the in-memory database alive for the
// whole test.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// insertUser adds a user row and returns its id.
func insertUser(t *testing.T, db *sql.DB, email, passwordHash, role string) uint64 {
	t.Helper()

	res, err := db.Exec(
		"INSERT INTO users (email, password_hash, role, created_at) VALUES (?,?,?,?)",
		email, passwordHash, role, time.Now().UTC().Format(model.TimeLayout))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

func seedAll(t *testing.T, db *sql.DB) {
	t.Helper()
	require.NoError(t, database.Seed(context.Background(), db, 4))
}

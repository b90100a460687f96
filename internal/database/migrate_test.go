package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mlefevre/boutique-api/internal/utils"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestMigrateAndSeed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(ctx, db, 4))

	assert.Equal(t, int64(3), count(t, db, "categories"))
	assert.Equal(t, int64(20), count(t, db, "products"))
	assert.Equal(t, int64(3), count(t, db, "users"))
	assert.Equal(t, int64(0), count(t, db, "refresh_tokens"))

	// Passwords are stored as bcrypt hashes, never plaintext.
	var hash string
	require.NoError(t, db.QueryRow(
		"SELECT password_hash FROM users WHERE email=?", "eleve@example.com").Scan(&hash))
	assert.NotEqual(t, "password123", hash)
	assert.True(t, utils.VerifyPassword(hash, "password123"))
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(ctx, db, 4))
	require.NoError(t, Migrate(db))
	require.NoError(t, Seed(ctx, db, 4))

	assert.Equal(t, int64(3), count(t, db, "categories"))
	assert.Equal(t, int64(20), count(t, db, "products"))
	assert.Equal(t, int64(3), count(t, db, "users"))
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open connects to the SQLite database at path and verifies the connection.
func Open(path string) (*sql.DB, error) {
	// WAL improves concurrency for mixed read/write load; busy_timeout keeps
	// overlapping writers from failing immediately with SQLITE_BUSY.
	// Foreign keys stay unenforced: listings tolerate dangling category
	// references and surface them as null category fields.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; one pooled connection keeps the driver
	// from tripping over itself under concurrent requests.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

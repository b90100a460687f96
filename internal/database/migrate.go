package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mlefevre/boutique-api/internal/model"
	"github.com/mlefevre/boutique-api/internal/utils"
)

// Migrate creates the schema when it does not exist yet. Timestamps are
// stored as RFC3339 TEXT so they compare correctly both in SQL and in Go.
func Migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS categories (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  price REAL NOT NULL,
  stock INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  category_id INTEGER NOT NULL,
  FOREIGN KEY (category_id) REFERENCES categories(id)
);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT DEFAULT 'user',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  token_hash TEXT NOT NULL UNIQUE,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  revoked_at TEXT,
  FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
`
	_, err := db.Exec(schema)
	return err
}

type seedProduct struct {
	name     string
	price    float64
	stock    int
	daysAgo  int
	category string
}

// Seed populates categories, products and users with demo data. Each table
// is seeded only when it is empty, so restarting the server is harmless.
func Seed(ctx context.Context, db *sql.DB, bcryptCost int) error {
	if err := seedCategories(ctx, db); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if err := seedProducts(ctx, db); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	if err := seedUsers(ctx, db, bcryptCost); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	return nil
}

func tableEmpty(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

func seedCategories(ctx context.Context, db *sql.DB) error {
	empty, err := tableEmpty(ctx, db, "categories")
	if err != nil || !empty {
		return err
	}
	categories := []struct{ name, description string }{
		{"Electronics", "Devices and gadgets for work and fun"},
		{"Books", "Fiction, non-fiction, and everything to read"},
		{"Home", "Home improvement, kitchen, and comfort items"},
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, c := range categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO categories (name, description) VALUES (?,?)",
			c.name, c.description); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func seedProducts(ctx context.Context, db *sql.DB) error {
	empty, err := tableEmpty(ctx, db, "products")
	if err != nil || !empty {
		return err
	}

	// Map category names to their generated ids.
	catIDs := map[string]int64{}
	rows, err := db.QueryContext(ctx, "SELECT id, name FROM categories")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		catIDs[name] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(catIDs) < 3 {
		return errors.New("seed categories before products")
	}

	products := []seedProduct{
		{"Wireless Headphones", 129.99, 45, 2, "Electronics"},
		{"Bluetooth Speaker", 79.99, 60, 5, "Electronics"},
		{"4K Monitor", 349.99, 18, 10, "Electronics"},
		{"USB-C Hub", 39.99, 120, 7, "Electronics"},
		{"Mechanical Keyboard", 119.99, 35, 12, "Electronics"},
		{"Smart Light Bulb", 24.99, 200, 14, "Electronics"},
		{"Stainless Steel Pan", 59.99, 70, 3, "Home"},
		{"Chef Knife", 89.99, 50, 1, "Home"},
		{"Espresso Maker", 199.99, 20, 9, "Home"},
		{"Vacuum Cleaner", 149.99, 25, 6, "Home"},
		{"Throw Blanket", 29.99, 110, 13, "Home"},
		{"Standing Desk", 499.99, 10, 15, "Home"},
		{"Science Fiction Novel", 16.99, 150, 4, "Books"},
		{"Cookbook", 24.99, 90, 8, "Books"},
		{"Productivity Guide", 21.99, 130, 11, "Books"},
		{"History Book", 27.5, 80, 16, "Books"},
		{"Mystery Thriller", 18.5, 140, 17, "Books"},
		{"Graphic Novel", 22.0, 95, 18, "Books"},
		{"Notebook Set", 14.99, 160, 19, "Books"},
		{"Desk Lamp", 34.99, 85, 20, "Home"},
	}

	now := time.Now().UTC()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, p := range products {
		createdAt := now.AddDate(0, 0, -p.daysAgo).Format(model.TimeLayout)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO products (name, price, stock, created_at, category_id) VALUES (?,?,?,?,?)",
			p.name, p.price, p.stock, createdAt, catIDs[p.category]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func seedUsers(ctx context.Context, db *sql.DB, bcryptCost int) error {
	empty, err := tableEmpty(ctx, db, "users")
	if err != nil || !empty {
		return err
	}
	users := []struct{ email, password, role string }{
		{"eleve@example.com", "password123", "user"},
		{"prof@example.com", "password123", "user"},
		{"admin@example.com", "admin123", "admin"},
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, u := range users {
		hash, err := utils.HashPassword(u.password, bcryptCost)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (email, password_hash, role, created_at) VALUES (?,?,?,?)",
			u.email, hash, u.role, time.Now().UTC().Format(model.TimeLayout)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

package model

// Category mirrors the 'categories' table.
type Category struct {
	ID          uint64
	Name        string
	Description string
}

// Product mirrors the 'products' table. Listing responses are projected
// dynamically from the allow-listed columns, so handlers rarely use the
// full struct; it exists for seed data and admin tooling.
type Product struct {
	ID         uint64
	Name       string
	Price      float64
	Stock      int64
	CreatedAt  string // stored RFC3339 text, returned to clients verbatim
	CategoryID uint64
}

package model

import "time"

// User mirrors the 'users' table. Role is either "user" or "admin".
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user and carries metadata for expiry and revocation.
// The plain token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash (unique)
	ExpiresAt time.Time  // refresh_tokens.expires_at
	CreatedAt time.Time  // refresh_tokens.created_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
}

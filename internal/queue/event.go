// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds published to the auth.events queue.
const (
	EventLogin        = "user.login"
	EventTokenRotated = "token.rotated"
	EventTokenRevoked = "token.revoked"
)

// AuthEvent is published whenever a session credential is issued, rotated
// or revoked. It carries enough for downstream consumers to audit or alert
// without querying the primary database. Token material is deliberately
// absent: raw tokens and their hashes never leave the core.
type AuthEvent struct {
	Event  string `json:"event"`
	UserID uint64 `json:"user_id"`
	Email  string `json:"email,omitempty"`
	At     string `json:"at"`
}

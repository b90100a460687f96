package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mlefevre/boutique-api/internal/model"
)

// Reasons a refresh token fails validation. They are surfaced verbatim to
// clients, so renaming them is a wire-format change.
const (
	ReasonNotFound = "not_found"
	ReasonRevoked  = "revoked"
	ReasonExpired  = "expired"
)

// RefreshValidation is the outcome of checking a presented refresh token.
// When Valid is true, Token holds the matched row and Email/Role carry the
// owning user's attributes from the join.
type RefreshValidation struct {
	Valid  bool
	Reason string
	Token  model.RefreshToken
	Email  string
	Role   string
}

// TokenRepo persists and validates refresh tokens. Raw tokens never reach
// this layer; callers pass SHA-256 hashes only.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token hash row. The token_hash column is UNIQUE;
// a collision (astronomically unlikely for random 48-byte tokens) surfaces
// as a plain storage error.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	now := time.Now().UTC().Format(model.TimeLayout)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		userID, tokenHash, exp.UTC().Format(model.TimeLayout), now)
	return err
}

// querier is the subset of *sql.DB / *sql.Tx validation needs.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Validate looks up a token hash joined to the owning user so a valid
// result carries email and role. A token whose user row is gone reports
// not_found: the join simply matches nothing.
func (r *TokenRepo) Validate(ctx context.Context, tokenHash string) (RefreshValidation, error) {
	return validate(ctx, r.DB, tokenHash)
}

func validate(ctx context.Context, q querier, tokenHash string) (RefreshValidation, error) {
	var (
		t         model.RefreshToken
		expiresAt string
		createdAt string
		revokedAt sql.NullString
		email     string
		role      string
	)
	err := q.QueryRowContext(ctx, `
		SELECT rt.id, rt.user_id, rt.token_hash, rt.expires_at, rt.created_at, rt.revoked_at, u.email, u.role
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token_hash=? LIMIT 1`,
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &createdAt, &revokedAt, &email, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RefreshValidation{Reason: ReasonNotFound}, nil
		}
		return RefreshValidation{}, err
	}

	if t.ExpiresAt, err = model.ParseTime(expiresAt); err != nil {
		return RefreshValidation{}, err
	}
	if t.CreatedAt, err = model.ParseTime(createdAt); err != nil {
		return RefreshValidation{}, err
	}
	if revokedAt.Valid {
		rv, err := model.ParseTime(revokedAt.String)
		if err != nil {
			return RefreshValidation{}, err
		}
		t.RevokedAt = &rv
		// A revoked row is permanently inert, expiry is not even checked.
		return RefreshValidation{Reason: ReasonRevoked, Token: t}, nil
	}
	if t.ExpiresAt.Before(time.Now().UTC()) {
		return RefreshValidation{Reason: ReasonExpired, Token: t}, nil
	}
	return RefreshValidation{Valid: true, Token: t, Email: email, Role: role}, nil
}

// Rotate consumes the presented token and stores a replacement for the same
// user in one transaction: either the delete and the insert both commit or
// neither does. The delete acts as a consume-once gate, so two concurrent
// rotations of the same token yield one success and one not_found. Reuse of
// an already-rotated token also reports not_found, which doubles as the
// replay signal.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, newHash string, newExp time.Time) (RefreshValidation, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return RefreshValidation{}, err
	}
	defer tx.Rollback()

	v, err := validate(ctx, tx, oldHash)
	if err != nil {
		return RefreshValidation{}, err
	}
	if !v.Valid {
		return v, nil
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", oldHash)
	if err != nil {
		return RefreshValidation{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return RefreshValidation{}, err
	} else if n == 0 {
		// Another rotation committed between our read and delete.
		return RefreshValidation{Reason: ReasonNotFound}, nil
	}

	now := time.Now().UTC().Format(model.TimeLayout)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		v.Token.UserID, newHash, newExp.UTC().Format(model.TimeLayout), now); err != nil {
		return RefreshValidation{}, err
	}

	if err := tx.Commit(); err != nil {
		return RefreshValidation{}, err
	}
	return v, nil
}

// Revoke marks a token as revoked. Revoking an already-revoked or unknown
// token is a no-op, so the operation is idempotent.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		time.Now().UTC().Format(model.TimeLayout), tokenHash)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mlefevre/boutique-api/internal/model"
)

// UserRepo reads user rows. Users are created by seed data only; this core
// never mutates or deletes them.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByEmail fetches a user by email. The match is exact: emails are stored
// and compared case-sensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.get(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE email=? LIMIT 1",
		email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE id=? LIMIT 1",
		id)
}

func (r *UserRepo) get(ctx context.Context, query string, arg any) (model.User, error) {
	var (
		u         model.User
		createdAt string
	)
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if u.CreatedAt, err = model.ParseTime(createdAt); err != nil {
		return model.User{}, err
	}
	return u, nil
}

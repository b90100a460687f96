package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlefevre/boutique-api/internal/repository"
	"github.com/mlefevre/boutique-api/internal/utils"
)

func TestTokenRepo_StoreAndValidate(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	tok, err := utils.NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, tok.Raw, 96)

	hash := utils.HashRefreshRaw(tok.Raw)
	require.NoError(t, repo.Store(ctx, uid, hash, tok.Exp))

	v, err := repo.Validate(ctx, hash)
	require.NoError(t, err)
	require.True(t, v.Valid)
	assert.Equal(t, uid, v.Token.UserID)
	assert.Equal(t, "eleve@example.com", v.Email)
	assert.Equal(t, "user", v.Role)
	assert.Nil(t, v.Token.RevokedAt)
	assert.WithinDuration(t, tok.Exp, v.Token.ExpiresAt, time.Second)
}

func TestTokenRepo_ValidateUnknown(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewTokenRepo(db)

	v, err := repo.Validate(context.Background(), utils.HashRefreshRaw("never-issued"))
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, repository.ReasonNotFound, v.Reason)
}

func TestTokenRepo_ValidateExpired(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	hash := utils.HashRefreshRaw("expired-token")
	require.NoError(t, repo.Store(ctx, uid, hash, time.Now().UTC().Add(-time.Hour)))

	v, err := repo.Validate(ctx, hash)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, repository.ReasonExpired, v.Reason)
}

func TestTokenRepo_RevokeIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	hash := utils.HashRefreshRaw("revoke-me")
	require.NoError(t, repo.Store(ctx, uid, hash, time.Now().UTC().Add(time.Hour)))

	require.NoError(t, repo.Revoke(ctx, hash))
	v, err := repo.Validate(ctx, hash)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, repository.ReasonRevoked, v.Reason)
	require.NotNil(t, v.Token.RevokedAt)
	first := *v.Token.RevokedAt

	// Second revoke is a no-op, the original revocation time survives.
	require.NoError(t, repo.Revoke(ctx, hash))
	v, err = repo.Validate(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, repository.ReasonRevoked, v.Reason)
	assert.Equal(t, first, *v.Token.RevokedAt)

	// Revoking an unknown token is also fine.
	require.NoError(t, repo.Revoke(ctx, utils.HashRefreshRaw("never-issued")))
}

func TestTokenRepo_RevokedWinsOverExpired(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	// Both revoked and expired: the revocation reason is reported.
	hash := utils.HashRefreshRaw("revoked-and-expired")
	require.NoError(t, repo.Store(ctx, uid, hash, time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, repo.Revoke(ctx, hash))

	v, err := repo.Validate(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, repository.ReasonRevoked, v.Reason)
}

func TestTokenRepo_Rotate(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	oldHash := utils.HashRefreshRaw("old-token")
	newHash := utils.HashRefreshRaw("new-token")
	require.NoError(t, repo.Store(ctx, uid, oldHash, time.Now().UTC().Add(time.Hour)))

	res, err := repo.Rotate(ctx, oldHash, newHash, time.Now().UTC().Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, res.Valid)
	assert.Equal(t, uid, res.Token.UserID)

	// The consumed token is gone; the replacement validates.
	v, err := repo.Validate(ctx, oldHash)
	require.NoError(t, err)
	assert.Equal(t, repository.ReasonNotFound, v.Reason)

	v, err = repo.Validate(ctx, newHash)
	require.NoError(t, err)
	assert.True(t, v.Valid)
}

func TestTokenRepo_RotateReuseFails(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	oldHash := utils.HashRefreshRaw("single-use")
	require.NoError(t, repo.Store(ctx, uid, oldHash, time.Now().UTC().Add(time.Hour)))

	res, err := repo.Rotate(ctx, oldHash, utils.HashRefreshRaw("first-replacement"), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.True(t, res.Valid)

	// Replaying the consumed token is the replay-detection signal.
	res, err = repo.Rotate(ctx, oldHash, utils.HashRefreshRaw("second-replacement"), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, repository.ReasonNotFound, res.Reason)
}

func TestTokenRepo_RotateRevoked(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	hash := utils.HashRefreshRaw("revoked-token")
	require.NoError(t, repo.Store(ctx, uid, hash, time.Now().UTC().Add(time.Hour)))
	require.NoError(t, repo.Revoke(ctx, hash))

	res, err := repo.Rotate(ctx, hash, utils.HashRefreshRaw("replacement"), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, repository.ReasonRevoked, res.Reason)
}

func TestTokenRepo_RotateConcurrent(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	oldHash := utils.HashRefreshRaw("contended")
	require.NoError(t, repo.Store(ctx, uid, oldHash, time.Now().UTC().Add(time.Hour)))

	results := make([]repository.RefreshValidation, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := repo.Rotate(ctx, oldHash,
				utils.HashRefreshRaw("replacement-"+string(rune('a'+i))),
				time.Now().UTC().Add(time.Hour))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	// The delete is a consume-once gate: exactly one rotation wins.
	wins := 0
	for _, res := range results {
		if res.Valid {
			wins++
		} else {
			assert.Equal(t, repository.ReasonNotFound, res.Reason)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestTokenRepo_DanglingUserIsNotFound(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "gone@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	hash := utils.HashRefreshRaw("orphaned")
	require.NoError(t, repo.Store(ctx, uid, hash, time.Now().UTC().Add(time.Hour)))

	_, err := db.Exec("DELETE FROM users WHERE id=?", uid)
	require.NoError(t, err)

	// The join to users matches nothing, so the token no longer validates.
	v, err := repo.Validate(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, repository.ReasonNotFound, v.Reason)
}

func TestTokenRepo_HashUniqueness(t *testing.T) {
	db := newTestDB(t)
	uid := insertUser(t, db, "eleve@example.com", "x", "user")
	repo := repository.NewTokenRepo(db)
	ctx := context.Background()

	hash := utils.HashRefreshRaw("collide")
	require.NoError(t, repo.Store(ctx, uid, hash, time.Now().UTC().Add(time.Hour)))

	// A second insert of the same hash violates the UNIQUE constraint and
	// surfaces as a plain storage error.
	err := repo.Store(ctx, uid, hash, time.Now().UTC().Add(time.Hour))
	require.Error(t, err)
}

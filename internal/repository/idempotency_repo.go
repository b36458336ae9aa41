package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository maps client-supplied idempotency keys to the
// reservation they originally produced. Keys are sha256-hashed before
// storage and expire after a day.
type IdempotencyRepository interface {
	CheckOrCreate(ctx context.Context, key, reservationID string) (existingID string, err error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type idempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) IdempotencyRepository {
	return &idempotencyRepository{pool: pool}
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum)
}

func (r *idempotencyRepository) CheckOrCreate(ctx context.Context, key, reservationID string) (string, error) {
	keyHash := hashKey(key)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var existingID string
	const checkQuery = `SELECT reservation_id FROM reservation_idempotency WHERE key_hash = $1`
	err := r.pool.QueryRow(ctx, checkQuery, keyHash).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return "", err
	}

	if reservationID != "" {
		const insertQuery = `
			INSERT INTO reservation_idempotency (key_hash, reservation_id, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key_hash) DO NOTHING`

		expiresAt := time.Now().Add(24 * time.Hour)
		if _, err := r.pool.Exec(ctx, insertQuery, keyHash, reservationID, expiresAt); err != nil {
			return "", err
		}
	}

	return "", nil
}

func (r *idempotencyRepository) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	const q = `DELETE FROM reservation_idempotency WHERE expires_at < now()`
	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

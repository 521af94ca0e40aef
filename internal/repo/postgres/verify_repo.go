package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verimart/verimart/internal/domain"
)

// VerifyRepo holds the transient verification-challenge state embedded in the
// user row: a one-way hash of the last issued code and its expiry instant.
type VerifyRepo interface {
	// SetChallenge overwrites any pending challenge; re-issuing a code
	// invalidates the previous one.
	SetChallenge(ctx context.Context, username, codeHash string, expiresAt time.Time) error
	// GetChallenge returns the stored hash and expiry, nils when no challenge
	// has ever been issued or the last one was consumed.
	GetChallenge(ctx context.Context, username string) (*string, *time.Time, error)
	// Consume grants VERIFIED and clears the stored challenge in one
	// transaction, so a redeemed code can never validate twice.
	Consume(ctx context.Context, username string) error
}

type VerifyRepoImpl struct{ pool *pgxpool.Pool }

func NewVerifyRepo(pool *pgxpool.Pool) *VerifyRepoImpl { return &VerifyRepoImpl{pool: pool} }

func (r *VerifyRepoImpl) SetChallenge(ctx context.Context, username, codeHash string, expiresAt time.Time) error {
	const q = `
UPDATE users
SET code_hash = $1, code_expires_at = $2, updated_at = now()
WHERE username = $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, codeHash, expiresAt, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *VerifyRepoImpl) GetChallenge(ctx context.Context, username string) (*string, *time.Time, error) {
	const q = `SELECT code_hash, code_expires_at FROM users WHERE username = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		hash    *string
		expires *time.Time
	)
	err := r.pool.QueryRow(ctx, q, username).Scan(&hash, &expires)
	if err == pgx.ErrNoRows {
		return nil, nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return hash, expires, nil
}

func (r *VerifyRepoImpl) Consume(ctx context.Context, username string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO user_attributes (user_id, attribute_id)
SELECT u.id, a.id FROM users u, attributes a
WHERE u.username = $1 AND a.name = $2
ON CONFLICT DO NOTHING`,
		username, domain.AttrVerified,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
UPDATE users
SET code_hash = NULL, code_expires_at = NULL, updated_at = now()
WHERE username = $1`,
		username,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verimart/verimart/internal/domain"
)

// SellerRepo owns the seller-profile side table and the one multi-step role
// transition: approval. Revocation removes only the SELLER tag; the profile
// row persists because items keep referencing it.
type SellerRepo interface {
	// Approve swaps PENDING_SELLER for SELLER and creates the profile row if
	// absent, all in one transaction. Fails with domain.ErrNotPendingSeller
	// when the target holds no pending application.
	Approve(ctx context.Context, username string) (sellerID int64, err error)
	ProfileByUsername(ctx context.Context, username string) (*domain.SellerProfile, error)
}

type SellerRepoImpl struct{ pool *pgxpool.Pool }

func NewSellerRepo(pool *pgxpool.Pool) *SellerRepoImpl { return &SellerRepoImpl{pool: pool} }

func (r *SellerRepoImpl) Approve(ctx context.Context, username string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&userID)
	if err == pgx.ErrNoRows {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
DELETE FROM user_attributes ua
USING attributes a
WHERE ua.user_id = $1 AND ua.attribute_id = a.id AND a.name = $2`,
		userID, domain.AttrPendingSeller,
	)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrNotPendingSeller
	}

	_, err = tx.Exec(ctx, `
INSERT INTO user_attributes (user_id, attribute_id)
SELECT $1, id FROM attributes WHERE name = $2
ON CONFLICT DO NOTHING`,
		userID, domain.AttrSeller,
	)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO seller_profiles (user_id, display_name)
VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING`,
		userID, username,
	)
	if err != nil {
		return 0, err
	}

	var sellerID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM seller_profiles WHERE user_id = $1`, userID).Scan(&sellerID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return sellerID, nil
}

func (r *SellerRepoImpl) ProfileByUsername(ctx context.Context, username string) (*domain.SellerProfile, error) {
	const q = `
SELECT sp.id, sp.user_id, sp.display_name
FROM seller_profiles sp
JOIN users u ON u.id = sp.user_id
WHERE u.username = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.SellerProfile
	err := r.pool.QueryRow(ctx, q, username).Scan(&p.ID, &p.UserID, &p.DisplayName)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verimart/verimart/internal/domain"
)

// ItemRepo drives the item status machine. Every transition is one
// conditioned UPDATE whose WHERE clause carries the precondition (current
// status, and ownership where required) and RETURNING reports the winner, so
// two racing requests on the same item produce exactly one winner regardless
// of isolation level.
type ItemRepo interface {
	Create(ctx context.Context, sellerID int64, req *domain.CreateItemRequest) (*domain.Item, error)
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	List(ctx context.Context) ([]domain.Item, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]domain.Item, error)
	// Reserve moves AVAILABLE -> RESERVED and records the buyer.
	Reserve(ctx context.Context, id, buyerID int64) (*domain.Item, error)
	// Finalize moves RESERVED -> SOLD for the owning seller.
	Finalize(ctx context.Context, id, sellerID int64) (*domain.Item, error)
	// Release moves RESERVED -> AVAILABLE for the owning seller, clearing the buyer.
	Release(ctx context.Context, id, sellerID int64) (*domain.Item, error)
}

type ItemRepoImpl struct{ pool *pgxpool.Pool }

func NewItemRepo(pool *pgxpool.Pool) *ItemRepoImpl { return &ItemRepoImpl{pool: pool} }

const itemCols = `id, seller_id, buyer_id, name, description, price_cents, status, created_at, updated_at`

func scanItem(row pgx.Row) (*domain.Item, error) {
	var it domain.Item
	err := row.Scan(
		&it.ID, &it.SellerID, &it.BuyerID,
		&it.Name, &it.Description, &it.PriceCents,
		&it.Status, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *ItemRepoImpl) Create(ctx context.Context, sellerID int64, req *domain.CreateItemRequest) (*domain.Item, error) {
	const q = `
INSERT INTO items (seller_id, name, description, price_cents, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + itemCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanItem(r.pool.QueryRow(ctx, q, sellerID, req.Name, req.Description, req.PriceCents, domain.ItemAvailable))
}

func (r *ItemRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	it, err := scanItem(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return it, err
}

func (r *ItemRepoImpl) List(ctx context.Context) ([]domain.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items ORDER BY id DESC`
	return r.queryItems(ctx, q)
}

func (r *ItemRepoImpl) ListBySeller(ctx context.Context, sellerID int64) ([]domain.Item, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE seller_id = $1 ORDER BY id DESC`
	return r.queryItems(ctx, q, sellerID)
}

func (r *ItemRepoImpl) queryItems(ctx context.Context, q string, args ...any) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(
			&it.ID, &it.SellerID, &it.BuyerID,
			&it.Name, &it.Description, &it.PriceCents,
			&it.Status, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *ItemRepoImpl) Reserve(ctx context.Context, id, buyerID int64) (*domain.Item, error) {
	const q = `
UPDATE items
SET status = $1, buyer_id = $2, updated_at = now()
WHERE id = $3 AND status = $4
RETURNING ` + itemCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	it, err := scanItem(r.pool.QueryRow(ctx, q, domain.ItemReserved, buyerID, id, domain.ItemAvailable))
	if err == pgx.ErrNoRows {
		return nil, r.classifyMiss(ctx, id, domain.ErrItemUnavailable)
	}
	return it, err
}

func (r *ItemRepoImpl) Finalize(ctx context.Context, id, sellerID int64) (*domain.Item, error) {
	const q = `
UPDATE items
SET status = $1, updated_at = now()
WHERE id = $2 AND seller_id = $3 AND status = $4
RETURNING ` + itemCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	it, err := scanItem(r.pool.QueryRow(ctx, q, domain.ItemSold, id, sellerID, domain.ItemReserved))
	if err == pgx.ErrNoRows {
		return nil, r.classifyMiss(ctx, id, domain.ErrNotOwnedOrNotReserved)
	}
	return it, err
}

func (r *ItemRepoImpl) Release(ctx context.Context, id, sellerID int64) (*domain.Item, error) {
	const q = `
UPDATE items
SET status = $1, buyer_id = NULL, updated_at = now()
WHERE id = $2 AND seller_id = $3 AND status = $4
RETURNING ` + itemCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	it, err := scanItem(r.pool.QueryRow(ctx, q, domain.ItemAvailable, id, sellerID, domain.ItemReserved))
	if err == pgx.ErrNoRows {
		return nil, r.classifyMiss(ctx, id, domain.ErrNotOwnedOrNotReserved)
	}
	return it, err
}

// classifyMiss distinguishes "no such item" from "precondition failed" after a
// conditioned write matched nothing. The follow-up read is for error shaping
// only; the transition itself already lost atomically.
func (r *ItemRepoImpl) classifyMiss(ctx context.Context, id int64, precondition error) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrItemNotFound
	}
	return precondition
}

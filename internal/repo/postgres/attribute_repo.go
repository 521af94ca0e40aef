package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verimart/verimart/internal/domain"
)

// AttributeRepo resolves capability-tag names against the catalog table.
// The catalog is immutable reference data seeded by migration.
type AttributeRepo interface {
	// ResolveIDs maps attribute names to their stable identifiers. A name the
	// catalog does not know yields domain.ErrUnknownAttribute: requirements
	// are declared statically, so a miss is a configuration error.
	ResolveIDs(ctx context.Context, names []string) ([]int64, error)
}

type AttributeRepoImpl struct{ pool *pgxpool.Pool }

func NewAttributeRepo(pool *pgxpool.Pool) *AttributeRepoImpl {
	return &AttributeRepoImpl{pool: pool}
}

func (r *AttributeRepoImpl) ResolveIDs(ctx context.Context, names []string) ([]int64, error) {
	const q = `SELECT id FROM attributes WHERE name = ANY($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != len(names) {
		return nil, domain.ErrUnknownAttribute
	}
	return ids, nil
}

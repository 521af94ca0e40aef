package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verimart/verimart/internal/domain"
)

// UserRepo is the capability store: the durable mapping from username to the
// set of attribute identifiers the user holds, plus the login credential row.
// Attribute mutation happens only through AddAttribute/RemoveAttribute (and
// the transactional role-transition methods in SellerRepo); additions are a
// union, removals subtract a single tag.
type UserRepo interface {
	Create(ctx context.Context, username, passwordHash string, attributes []string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	AttributeIDs(ctx context.Context, username string) (domain.AttributeSet, error)
	AttributeNames(ctx context.Context, username string) ([]string, error)
	AddAttribute(ctx context.Context, username, attribute string) error
	RemoveAttribute(ctx context.Context, username, attribute string) error
	ListWithAttributes(ctx context.Context) ([]domain.UserWithAttributes, error)
	ListSellers(ctx context.Context) ([]domain.UserWithAttributes, error)
}

type UserRepoImpl struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *UserRepoImpl { return &UserRepoImpl{pool: pool} }

const userCols = `id, username, password_hash, code_hash, code_expires_at, created_at, updated_at`

// Create inserts the credential row and the initial capability set in one
// transaction; a user is never observable with an empty set.
func (r *UserRepoImpl) Create(ctx context.Context, username, passwordHash string, attributes []string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var u domain.User
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING `+userCols,
		username, passwordHash,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CodeHash, &u.CodeExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO user_attributes (user_id, attribute_id)
		 SELECT $1, id FROM attributes WHERE name = ANY($2)`,
		u.ID, attributes,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != int64(len(attributes)) {
		return nil, domain.ErrUnknownAttribute
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE username=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.CodeHash, &u.CodeExpires, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) AttributeIDs(ctx context.Context, username string) (domain.AttributeSet, error) {
	const q = `
SELECT ua.attribute_id
FROM user_attributes ua
JOIN users u ON u.id = ua.user_id
WHERE u.username = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := domain.NewAttributeSet()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set.Add(id)
	}
	return set, rows.Err()
}

func (r *UserRepoImpl) AttributeNames(ctx context.Context, username string) ([]string, error) {
	const q = `
SELECT a.name
FROM user_attributes ua
JOIN users u ON u.id = ua.user_id
JOIN attributes a ON a.id = ua.attribute_id
WHERE u.username = $1
ORDER BY a.name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AddAttribute performs an additive union: holding the tag already is not an
// error and disturbs nothing else in the set.
func (r *UserRepoImpl) AddAttribute(ctx context.Context, username, attribute string) error {
	const q = `
INSERT INTO user_attributes (user_id, attribute_id)
SELECT u.id, a.id FROM users u, attributes a
WHERE u.username = $1 AND a.name = $2
ON CONFLICT DO NOTHING`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, username, attribute)
	return err
}

// RemoveAttribute subtracts a single tag; removing a tag the user does not
// hold is a no-op.
func (r *UserRepoImpl) RemoveAttribute(ctx context.Context, username, attribute string) error {
	const q = `
DELETE FROM user_attributes ua
USING users u, attributes a
WHERE ua.user_id = u.id AND ua.attribute_id = a.id
  AND u.username = $1 AND a.name = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, username, attribute)
	return err
}

const listUsersQuery = `
SELECT u.username,
       COALESCE(array_agg(a.name ORDER BY a.name) FILTER (WHERE a.name IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_attributes ua ON ua.user_id = u.id
LEFT JOIN attributes a ON a.id = ua.attribute_id
%s
GROUP BY u.username
ORDER BY u.username`

func (r *UserRepoImpl) ListWithAttributes(ctx context.Context) ([]domain.UserWithAttributes, error) {
	return r.list(ctx, "")
}

func (r *UserRepoImpl) ListSellers(ctx context.Context) ([]domain.UserWithAttributes, error) {
	const filter = `
WHERE u.id IN (
	SELECT ua2.user_id FROM user_attributes ua2
	JOIN attributes a2 ON a2.id = ua2.attribute_id
	WHERE a2.name = 'SELLER'
)`
	return r.list(ctx, filter)
}

func (r *UserRepoImpl) list(ctx context.Context, filter string) ([]domain.UserWithAttributes, error) {
	q := fmt.Sprintf(listUsersQuery, filter)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserWithAttributes
	for rows.Next() {
		var u domain.UserWithAttributes
		if err := rows.Scan(&u.Username, &u.Attributes); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

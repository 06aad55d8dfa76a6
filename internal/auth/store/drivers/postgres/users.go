package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
)

type usersRepo struct {
	q dbtx
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	query :=
		`SELECT id, email, token_salt, created_at, updated_at FROM users
		 WHERE id = $1`

	var u domain.User
	err := r.q.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.TokenSalt, &u.CreatedAt, &u.UpdatedAt)
	return u, mapError(err)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	query :=
		`SELECT id, email, token_salt, created_at, updated_at FROM users
		 WHERE email = $1`

	var u domain.User
	err := r.q.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.TokenSalt, &u.CreatedAt, &u.UpdatedAt)
	return u, mapError(err)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	query :=
		`INSERT INTO users (id, email, token_salt, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.ExecContext(ctx, query, u.ID, u.Email, u.TokenSalt, u.CreatedAt, u.UpdatedAt)
	return mapError(err)
}

func (r *usersRepo) UpdateTokenSalt(ctx context.Context, userID, salt string) error {
	query :=
		`UPDATE users SET token_salt = $1, updated_at = now()
		 WHERE id = $2`

	res, err := r.q.ExecContext(ctx, query, salt, userID)
	if err != nil {
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

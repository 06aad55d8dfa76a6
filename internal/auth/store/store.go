package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrNestedTx      = errors.New("store: nested transactions are not supported")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this and expose sub-repositories so a transaction can hand out
// the same repositories scoped to itself.
type Store interface {
	Users() Users
	OAuth2States() OAuth2States

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. It commits when fn returns nil
	// and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// StateStore is a standalone OAuth2 state backend (e.g. Redis) that can be
// used instead of the database's own OAuth2States repository.
type StateStore interface {
	OAuth2States
	Close() error
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the token identifier lookup. Returns ErrNotFound when
	// no user has that email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateTokenSalt replaces the user's salt and bumps updated_at. Every
	// token signed with the old salt stops verifying.
	UpdateTokenSalt(ctx context.Context, userID, salt string) error
}

type OAuth2States interface {
	// CreateState persists a new in-flight login. Returns ErrAlreadyExists if
	// the csrf state collides.
	CreateState(ctx context.Context, s domain.OAuth2State) error

	// GetState returns the state without consuming it.
	GetState(ctx context.Context, csrfState string) (domain.OAuth2State, error)

	// ConsumeState atomically returns and deletes the state, so a second call
	// with the same csrf state returns ErrNotFound.
	ConsumeState(ctx context.Context, csrfState string) (domain.OAuth2State, error)

	// DeleteExpiredStates removes states created before the cutoff and
	// returns how many were removed.
	DeleteExpiredStates(ctx context.Context, before time.Time) (int64, error)
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
)

// txStore scopes every repository to one *sql.Tx. Lifecycle methods that
// only make sense on the root Store are inert here.
type txStore struct {
	tx *sql.Tx
}

var _ store.Tx = (*txStore)(nil)

func (t *txStore) Users() store.Users               { return &usersRepo{q: t.tx} }
func (t *txStore) OAuth2States() store.OAuth2States { return &oauth2StatesRepo{q: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, store.ErrNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return store.ErrNestedTx }

func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Ping(context.Context) error { return nil }
func (t *txStore) Close() error               { return nil }

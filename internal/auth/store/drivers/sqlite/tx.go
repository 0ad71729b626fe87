package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/sqlite/gen"
)

// txStore scopes the users repository to one *sql.Tx. Lifecycle methods
// that only make sense on the root store are no-ops here.
type txStore struct {
	tx    *sql.Tx
	users *usersRepo
}

func newTx(tx *sql.Tx, now func() time.Time) *txStore {
	return &txStore{tx: tx, users: &usersRepo{q: gen.New(tx), now: now}}
}

func (t *txStore) Users() store.Users { return t.users }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, store.ErrNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error {
	return store.ErrNestedTx
}

func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Close() error               { return nil }
func (t *txStore) Ping(context.Context) error { return nil }

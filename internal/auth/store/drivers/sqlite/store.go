package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/sqlite/gen"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	q   *gen.Queries
	dsn string
	now func() time.Time
}

// connPragmas are applied by the driver to every connection it opens.
// Foreign keys are enforced and lock contention waits instead of failing
// with SQLITE_BUSY.
var connPragmas = []string{"busy_timeout(5000)", "foreign_keys(1)"}

// NewStore opens a sqlite database. ":memory:" gets a single connection so
// every query sees the same in-memory database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, err
	}

	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	return &Store{
		db:  db,
		q:   gen.New(db),
		dsn: dsn,
		now: time.Now,
	}, nil
}

// withPragmas appends a _pragma parameter for each connPragmas entry the
// dsn does not already set.
func withPragmas(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range connPragmas {
		name, _, _ := strings.Cut(p, "(")
		if strings.Contains(dsn, "_pragma="+name+"(") {
			continue
		}
		b.WriteString(sep + "_pragma=" + p)
		sep = "&"
	}
	return b.String()
}

// SetClock replaces the clock used for created_at/updated_at, for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Close() error { return s.db.Close() }

// Ping is what readyz probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx begins a transaction; the returned store must be committed or rolled back.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx, s.now), nil
}

// WithTx runs fn in a transaction; see store.RunInTx.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return store.RunInTx(ctx, s, fn)
}

func (s *Store) Users() store.Users { return &usersRepo{q: s.q, now: s.now} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func mapUser(row gen.User) domain.User {
	return domain.User{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		Avatar:          row.Avatar,
		Role:            domain.Role(row.Role),
		Status:          domain.Status(row.Status),
		IsEmailVerified: row.IsEmailVerified,
		GoogleID:        mapNullString(row.GoogleID),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

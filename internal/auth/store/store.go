package store

import (
	"context"
	"errors"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStale is returned by compare-and-swap updates when the row no longer
	// holds the expected value, e.g. a refresh token rotated concurrently.
	ErrStale = errors.New("store: stale value")

	// ErrNestedTx is returned when a Tx-scoped store is asked to begin
	// another transaction.
	ErrNestedTx = errors.New("store: nested transactions are not supported")
)

// RunInTx begins a transaction on s, runs fn and commits when fn returns
// nil. Any error or panic from fn rolls the transaction back.
func RunInTx(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Store is implemented by the sqlite and postgres drivers. Sub-repositories are methods so a Tx-scoped store exposes
// the exact same surface and nobody opens a transaction inside another one.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx begins a transaction. The caller owns the returned Tx and must end
	// it with Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping reports whether the database answers.
	Ping(ctx context.Context) error
}

// Tx is a Store bound to one open transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store. Unless a method name says WithPassword or
// WithRefreshToken the returned users have PasswordHash, RefreshToken and
// the verification code fields zeroed; the queries do not select them.
// Email arguments are normalized by the implementation.
type Users interface {
	FindByID(ctx context.Context, id string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (domain.User, error)

	// FindByEmailWithPassword is the only read used by login.
	FindByEmailWithPassword(ctx context.Context, email string) (domain.User, error)
	FindByIDWithPassword(ctx context.Context, id string) (domain.User, error)
	FindByIDWithRefreshToken(ctx context.Context, id string) (domain.User, error)

	// FindByVerificationCode matches the code digest, only while it has not
	// expired at now.
	FindByVerificationCode(ctx context.Context, digest string, now time.Time) (domain.User, error)

	// Create inserts u. ErrAlreadyExists when the email (or Google id) is taken.
	Create(ctx context.Context, u domain.User) error

	// UpdateRefreshToken stores a token fingerprint; nil clears it.
	UpdateRefreshToken(ctx context.Context, id string, token *string) error

	// RotateRefreshToken replaces presented with next in one conditional
	// update. ErrStale when the stored value is no longer presented.
	RotateRefreshToken(ctx context.Context, id, presented, next string) error

	// UpdateVerificationCode overwrites any outstanding code.
	UpdateVerificationCode(ctx context.Context, id, digest string, expiresAt time.Time) error

	// ConsumeVerificationCode is FindByVerificationCode and
	// MarkEmailVerified as one conditional update: of concurrent calls with
	// the same digest at most one succeeds, the rest get ErrNotFound.
	ConsumeVerificationCode(ctx context.Context, digest string, now time.Time) (domain.User, error)

	// MarkEmailVerified sets verified and clears the code. Only a PENDING
	// account becomes ACTIVE; SUSPENDED and INACTIVE are kept.
	MarkEmailVerified(ctx context.Context, id string) error

	// UpdateFields writes only the columns set in patch and returns the
	// resulting row. ErrNotFound, or ErrAlreadyExists on an email collision.
	UpdateFields(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error)

	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// LinkGoogleAccount sets google_id and, when the user has none, the avatar.
	LinkGoogleAccount(ctx context.Context, id, googleID, avatar string) error

	// List returns users newest first.
	List(ctx context.Context, f domain.UserFilter) ([]domain.User, error)
	Count(ctx context.Context, f domain.UserFilter) (int, error)

	Delete(ctx context.Context, id string) error

	// IsEmpty reports whether no account exists yet; the bootstrap admin
	// is only created then.
	IsEmpty(ctx context.Context) (bool, error)

	// ClearExpiredVerificationCodes drops codes past expiry. Housekeeping.
	ClearExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error)
}

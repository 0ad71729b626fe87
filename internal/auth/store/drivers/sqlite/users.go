package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/sqlite/gen"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type usersRepo struct {
	q   *gen.Queries
	now func() time.Time
}

func (r *usersRepo) FindByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) FindByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	row, err := r.q.GetUserByGoogleID(ctx, googleID)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) FindByEmailWithPassword(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmailWithPassword(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u := mapUser(row.User)
	u.PasswordHash = row.PasswordHash
	return u, nil
}

func (r *usersRepo) FindByIDWithPassword(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByIDWithPassword(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u := mapUser(row.User)
	u.PasswordHash = row.PasswordHash
	return u, nil
}

func (r *usersRepo) FindByIDWithRefreshToken(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByIDWithRefreshToken(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u := mapUser(row.User)
	u.RefreshToken = mapNullString(row.RefreshToken)
	return u, nil
}

func (r *usersRepo) FindByVerificationCode(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row, err := r.q.GetUserByVerificationCode(ctx, gen.GetUserByVerificationCodeParams{
		VerificationCode: digest,
		Now:              now.UTC(),
	})
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	now := r.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:                    u.ID,
		Name:                  u.Name,
		Email:                 domain.NormalizeEmail(u.Email),
		PasswordHash:          u.PasswordHash,
		Avatar:                u.Avatar,
		Role:                  string(u.Role),
		Status:                string(u.Status),
		IsEmailVerified:       u.IsEmailVerified,
		GoogleID:              mapStringNull(u.GoogleID),
		RefreshToken:          mapStringNull(u.RefreshToken),
		VerificationCode:      mapStringNull(u.VerificationCode),
		VerificationExpiresAt: mapOptionalTime(u.VerificationExpiresAt),
		CreatedAt:             u.CreatedAt.UTC(),
		UpdatedAt:             u.UpdatedAt.UTC(),
	})
	return mapConstraint(err)
}

func (r *usersRepo) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	n, err := r.q.UpdateUserRefreshToken(ctx, gen.UpdateUserRefreshTokenParams{
		RefreshToken: mapOptionalString(token),
		UpdatedAt:    r.now().UTC(),
		ID:           id,
	})
	return requireRow(n, err)
}

func (r *usersRepo) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	n, err := r.q.RotateUserRefreshToken(ctx, gen.RotateUserRefreshTokenParams{
		Next:      next,
		UpdatedAt: r.now().UTC(),
		ID:        id,
		Presented: presented,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrStale
	}
	return nil
}

func (r *usersRepo) UpdateVerificationCode(ctx context.Context, id, digest string, expiresAt time.Time) error {
	n, err := r.q.UpdateUserVerificationCode(ctx, gen.UpdateUserVerificationCodeParams{
		VerificationCode:      digest,
		VerificationExpiresAt: expiresAt.UTC(),
		UpdatedAt:             r.now().UTC(),
		ID:                    id,
	})
	return requireRow(n, err)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return requireRow(r.q.MarkUserEmailVerified(ctx, r.now().UTC(), id))
}

// ConsumeVerificationCode clears a live code and verifies its owner in
// one statement, so a code is spent at most once.
func (r *usersRepo) ConsumeVerificationCode(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	row, err := r.q.ConsumeVerificationCode(ctx, gen.ConsumeVerificationCodeParams{
		VerificationCode: digest,
		Now:              now.UTC(),
	})
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

// UpdateFields writes only the patched columns; the rest keep whatever the
// row holds at update time.
func (r *usersRepo) UpdateFields(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	params := gen.UpdateUserFieldsParams{
		Name:      mapOptionalString(patch.Name),
		Avatar:    mapOptionalString(patch.Avatar),
		UpdatedAt: r.now().UTC(),
		ID:        id,
	}
	if patch.Email != nil {
		params.Email = mapStringNull(domain.NormalizeEmail(*patch.Email))
	}
	if patch.Role != nil {
		params.Role = mapStringNull(string(*patch.Role))
	}
	if patch.Status != nil {
		params.Status = mapStringNull(string(*patch.Status))
	}

	row, err := r.q.UpdateUserFields(ctx, params)
	if err != nil {
		return domain.User{}, mapConstraint(mapNotFound(err))
	}
	return mapUser(row), nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return requireRow(r.q.UpdateUserPasswordHash(ctx, hash, r.now().UTC(), id))
}

func (r *usersRepo) LinkGoogleAccount(ctx context.Context, id, googleID, avatar string) error {
	n, err := r.q.LinkUserGoogleAccount(ctx, gen.LinkUserGoogleAccountParams{
		GoogleID:  googleID,
		Avatar:    avatar,
		UpdatedAt: r.now().UTC(),
		ID:        id,
	})
	return requireRow(n, mapConstraint(err))
}

func (r *usersRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, error) {
	rows, err := r.q.ListUsers(ctx, gen.ListUsersParams{
		UserFilterParams: filterParams(f),
		Limit:            int64(f.Limit),
		Offset:           int64(f.Offset),
	})
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, len(rows))
	for i, row := range rows {
		users[i] = mapUser(row)
	}
	return users, nil
}

func (r *usersRepo) Count(ctx context.Context, f domain.UserFilter) (int, error) {
	n, err := r.q.CountFilteredUsers(ctx, filterParams(f))
	return int(n), err
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	return requireRow(r.q.DeleteUser(ctx, id))
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	count, err := r.q.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) ClearExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.q.ClearExpiredVerificationCodes(ctx, now.UTC())
}

func filterParams(f domain.UserFilter) gen.UserFilterParams {
	return gen.UserFilterParams{
		Role:   string(f.Role),
		Status: string(f.Status),
		Search: f.Search,
	}
}

// requireRow turns "updated nothing" into ErrNotFound.
func requireRow(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		}
	}
	return err
}


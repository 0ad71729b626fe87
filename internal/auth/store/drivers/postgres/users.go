package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/store"
)

const userColumns = `id, name, email, avatar, role, status, is_email_verified, google_id, created_at, updated_at`

type usersRepo struct {
	db  dbtx
	now func() time.Time
}

type scanner interface{ Scan(...any) error }

func scanUser(row scanner, extra ...any) (domain.User, error) {
	var (
		u        domain.User
		role     string
		status   string
		googleID sql.NullString
	)
	dest := append([]any{
		&u.ID, &u.Name, &u.Email, &u.Avatar, &role, &status,
		&u.IsEmailVerified, &googleID, &u.CreatedAt, &u.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	u.Status = domain.Status(status)
	u.GoogleID = googleID.String
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) findOne(ctx context.Context, where string, args ...any) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...))
}

func (r *usersRepo) FindByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *usersRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, `lower(email) = $1`, domain.NormalizeEmail(email))
}

func (r *usersRepo) FindByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	return r.findOne(ctx, `google_id = $1`, googleID)
}

func (r *usersRepo) FindByEmailWithPassword(ctx context.Context, email string) (domain.User, error) {
	var hash string
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE lower(email) = $1`,
		domain.NormalizeEmail(email))
	u, err := scanUser(row, &hash)
	u.PasswordHash = hash
	return u, err
}

func (r *usersRepo) FindByIDWithPassword(ctx context.Context, id string) (domain.User, error) {
	var hash string
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+`, password_hash FROM users WHERE id = $1`, id)
	u, err := scanUser(row, &hash)
	u.PasswordHash = hash
	return u, err
}

func (r *usersRepo) FindByIDWithRefreshToken(ctx context.Context, id string) (domain.User, error) {
	var token sql.NullString
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+`, refresh_token FROM users WHERE id = $1`, id)
	u, err := scanUser(row, &token)
	u.RefreshToken = token.String
	return u, err
}

func (r *usersRepo) FindByVerificationCode(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	return r.findOne(ctx, `verification_code = $1 AND verification_expires_at > $2`, digest, now.UTC())
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, avatar, role, status,
			is_email_verified, google_id, refresh_token, verification_code, verification_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		u.ID,
		u.Name,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.Avatar,
		string(u.Role),
		string(u.Status),
		u.IsEmailVerified,
		nullString(u.GoogleID),
		nullString(u.RefreshToken),
		nullString(u.VerificationCode),
		u.VerificationExpiresAt,
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.RowsAffected()
}

func (r *usersRepo) execOne(ctx context.Context, query string, args ...any) error {
	n, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	return r.execOne(ctx, `UPDATE users SET refresh_token = $1, updated_at = $2 WHERE id = $3`,
		token, r.now().UTC(), id)
}

func (r *usersRepo) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	n, err := r.exec(ctx,
		`UPDATE users SET refresh_token = $1, updated_at = $2 WHERE id = $3 AND refresh_token = $4`,
		next, r.now().UTC(), id, presented)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrStale
	}
	return nil
}

func (r *usersRepo) UpdateVerificationCode(ctx context.Context, id, digest string, expiresAt time.Time) error {
	return r.execOne(ctx,
		`UPDATE users SET verification_code = $1, verification_expires_at = $2, updated_at = $3 WHERE id = $4`,
		digest, expiresAt.UTC(), r.now().UTC(), id)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return r.execOne(ctx, `
		UPDATE users
		SET is_email_verified = TRUE,
		    status = CASE WHEN status = 'PENDING' THEN 'ACTIVE' ELSE status END,
		    verification_code = NULL,
		    verification_expires_at = NULL,
		    updated_at = $1
		WHERE id = $2`, r.now().UTC(), id)
}

func (r *usersRepo) ConsumeVerificationCode(ctx context.Context, digest string, now time.Time) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users
		SET is_email_verified = TRUE,
		    status = CASE WHEN status = 'PENDING' THEN 'ACTIVE' ELSE status END,
		    verification_code = NULL,
		    verification_expires_at = NULL,
		    updated_at = $1
		WHERE verification_code = $2 AND verification_expires_at > $1
		RETURNING `+userColumns, now.UTC(), digest))
}

func (r *usersRepo) UpdateFields(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Email != nil {
		add("email", domain.NormalizeEmail(*patch.Email))
	}
	if patch.Avatar != nil {
		add("avatar", *patch.Avatar)
	}
	if patch.Role != nil {
		add("role", string(*patch.Role))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
		// An administrator activating an account vouches for the address.
		if *patch.Status == domain.StatusActive {
			add("is_email_verified", true)
		}
	}
	add("updated_at", r.now().UTC())
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), len(args))

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.User{}, mapConstraint(err)
	}
	return u, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, r.now().UTC(), id)
}

func (r *usersRepo) LinkGoogleAccount(ctx context.Context, id, googleID, avatar string) error {
	return r.execOne(ctx, `
		UPDATE users
		SET google_id = $1,
		    avatar = CASE WHEN avatar = '' THEN $2 ELSE avatar END,
		    updated_at = $3
		WHERE id = $4`, googleID, avatar, r.now().UTC(), id)
}

func filterClause(f domain.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Role != "" {
		args = append(args, string(f.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *usersRepo) List(ctx context.Context, f domain.UserFilter) ([]domain.User, error) {
	where, args := filterClause(f)
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) Count(ctx context.Context, f domain.UserFilter) (int, error) {
	where, args := filterClause(f)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&n)
	return n, err
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists)
	return !exists, err
}

func (r *usersRepo) ClearExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `
		UPDATE users
		SET verification_code = NULL, verification_expires_at = NULL
		WHERE verification_code IS NOT NULL AND verification_expires_at <= $1`, now.UTC())
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

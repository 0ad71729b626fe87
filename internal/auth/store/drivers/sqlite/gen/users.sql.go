package gen

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, name, email, avatar, role, status, is_email_verified, google_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, extra ...any) (User, error) {
	var u User
	dest := append([]any{
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Avatar,
		&u.Role,
		&u.Status,
		&u.IsEmailVerified,
		&u.GoogleID,
		&u.CreatedAt,
		&u.UpdatedAt,
	}, extra...)
	err := row.Scan(dest...)
	return u, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByGoogleID = `-- name: GetUserByGoogleID :one
SELECT ` + userColumns + ` FROM users WHERE google_id = ?`

func (q *Queries) GetUserByGoogleID(ctx context.Context, googleID string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByGoogleID, googleID))
}

const getUserByEmailWithPassword = `-- name: GetUserByEmailWithPassword :one
SELECT ` + userColumns + `, password_hash FROM users WHERE email = ?`

func (q *Queries) GetUserByEmailWithPassword(ctx context.Context, email string) (UserWithPassword, error) {
	var out UserWithPassword
	u, err := scanUser(q.db.QueryRowContext(ctx, getUserByEmailWithPassword, email), &out.PasswordHash)
	out.User = u
	return out, err
}

const getUserByIDWithPassword = `-- name: GetUserByIDWithPassword :one
SELECT ` + userColumns + `, password_hash FROM users WHERE id = ?`

func (q *Queries) GetUserByIDWithPassword(ctx context.Context, id string) (UserWithPassword, error) {
	var out UserWithPassword
	u, err := scanUser(q.db.QueryRowContext(ctx, getUserByIDWithPassword, id), &out.PasswordHash)
	out.User = u
	return out, err
}

const getUserByIDWithRefreshToken = `-- name: GetUserByIDWithRefreshToken :one
SELECT ` + userColumns + `, refresh_token FROM users WHERE id = ?`

func (q *Queries) GetUserByIDWithRefreshToken(ctx context.Context, id string) (UserWithRefreshToken, error) {
	var out UserWithRefreshToken
	u, err := scanUser(q.db.QueryRowContext(ctx, getUserByIDWithRefreshToken, id), &out.RefreshToken)
	out.User = u
	return out, err
}

const getUserByVerificationCode = `-- name: GetUserByVerificationCode :one
SELECT ` + userColumns + ` FROM users
WHERE verification_code = ? AND verification_expires_at > ?`

type GetUserByVerificationCodeParams struct {
	VerificationCode string
	Now              time.Time
}

func (q *Queries) GetUserByVerificationCode(ctx context.Context, arg GetUserByVerificationCodeParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByVerificationCode, arg.VerificationCode, arg.Now))
}

const createUser = `-- name: CreateUser :exec
INSERT INTO users (
    id, name, email, password_hash, avatar, role, status,
    is_email_verified, google_id, refresh_token, verification_code, verification_expires_at,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateUserParams struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	Avatar                string
	Role                  string
	Status                string
	IsEmailVerified       bool
	GoogleID              sql.NullString
	RefreshToken          sql.NullString
	VerificationCode      sql.NullString
	VerificationExpiresAt sql.NullTime
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Name,
		arg.Email,
		arg.PasswordHash,
		arg.Avatar,
		arg.Role,
		arg.Status,
		arg.IsEmailVerified,
		arg.GoogleID,
		arg.RefreshToken,
		arg.VerificationCode,
		arg.VerificationExpiresAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updateUserRefreshToken = `-- name: UpdateUserRefreshToken :execrows
UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`

type UpdateUserRefreshTokenParams struct {
	RefreshToken sql.NullString
	UpdatedAt    time.Time
	ID           string
}

func (q *Queries) UpdateUserRefreshToken(ctx context.Context, arg UpdateUserRefreshTokenParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserRefreshToken, arg.RefreshToken, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const rotateUserRefreshToken = `-- name: RotateUserRefreshToken :execrows
UPDATE users SET refresh_token = ?, updated_at = ?
WHERE id = ? AND refresh_token = ?`

type RotateUserRefreshTokenParams struct {
	Next      string
	UpdatedAt time.Time
	ID        string
	Presented string
}

func (q *Queries) RotateUserRefreshToken(ctx context.Context, arg RotateUserRefreshTokenParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, rotateUserRefreshToken, arg.Next, arg.UpdatedAt, arg.ID, arg.Presented)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateUserVerificationCode = `-- name: UpdateUserVerificationCode :execrows
UPDATE users SET verification_code = ?, verification_expires_at = ?, updated_at = ?
WHERE id = ?`

type UpdateUserVerificationCodeParams struct {
	VerificationCode      string
	VerificationExpiresAt time.Time
	UpdatedAt             time.Time
	ID                    string
}

func (q *Queries) UpdateUserVerificationCode(ctx context.Context, arg UpdateUserVerificationCodeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserVerificationCode,
		arg.VerificationCode, arg.VerificationExpiresAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markUserEmailVerified = `-- name: MarkUserEmailVerified :execrows
UPDATE users
SET is_email_verified = 1,
    status = CASE WHEN status = 'PENDING' THEN 'ACTIVE' ELSE status END,
    verification_code = NULL,
    verification_expires_at = NULL,
    updated_at = ?
WHERE id = ?`

func (q *Queries) MarkUserEmailVerified(ctx context.Context, updatedAt time.Time, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markUserEmailVerified, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const consumeVerificationCode = `-- name: ConsumeVerificationCode :one
UPDATE users
SET is_email_verified = 1,
    status = CASE WHEN status = 'PENDING' THEN 'ACTIVE' ELSE status END,
    verification_code = NULL,
    verification_expires_at = NULL,
    updated_at = ?
WHERE verification_code = ? AND verification_expires_at > ?
RETURNING ` + userColumns

type ConsumeVerificationCodeParams struct {
	VerificationCode string
	Now              time.Time
}

func (q *Queries) ConsumeVerificationCode(ctx context.Context, arg ConsumeVerificationCodeParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, consumeVerificationCode, arg.Now, arg.VerificationCode, arg.Now))
}

const updateUserFields = `-- name: UpdateUserFields :one
UPDATE users
SET name = COALESCE(?, name),
    email = COALESCE(?, email),
    avatar = COALESCE(?, avatar),
    role = COALESCE(?, role),
    status = COALESCE(?, status),
    is_email_verified = CASE WHEN ? = 'ACTIVE' THEN 1 ELSE is_email_verified END,
    updated_at = ?
WHERE id = ?
RETURNING ` + userColumns

// UpdateUserFieldsParams leaves a column untouched when its field is null.
type UpdateUserFieldsParams struct {
	Name      sql.NullString
	Email     sql.NullString
	Avatar    sql.NullString
	Role      sql.NullString
	Status    sql.NullString
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) UpdateUserFields(ctx context.Context, arg UpdateUserFieldsParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserFields,
		arg.Name,
		arg.Email,
		arg.Avatar,
		arg.Role,
		arg.Status,
		arg.Status,
		arg.UpdatedAt,
		arg.ID,
	))
}

const updateUserPasswordHash = `-- name: UpdateUserPasswordHash :execrows
UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserPasswordHash(ctx context.Context, passwordHash string, updatedAt time.Time, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserPasswordHash, passwordHash, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const linkUserGoogleAccount = `-- name: LinkUserGoogleAccount :execrows
UPDATE users
SET google_id = ?,
    avatar = CASE WHEN avatar = '' THEN ? ELSE avatar END,
    updated_at = ?
WHERE id = ?`

type LinkUserGoogleAccountParams struct {
	GoogleID  string
	Avatar    string
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) LinkUserGoogleAccount(ctx context.Context, arg LinkUserGoogleAccountParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, linkUserGoogleAccount, arg.GoogleID, arg.Avatar, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Empty filter values match everything; each value is bound twice.
const userFilter = `
WHERE (? = '' OR role = ?)
  AND (? = '' OR status = ?)
  AND (? = '' OR name LIKE '%' || ? || '%' OR email LIKE '%' || ? || '%')`

type UserFilterParams struct {
	Role   string
	Status string
	Search string
}

func (p UserFilterParams) args() []any {
	return []any{p.Role, p.Role, p.Status, p.Status, p.Search, p.Search, p.Search}
}

const listUsers = `-- name: ListUsers :many
SELECT ` + userColumns + ` FROM users` + userFilter + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

type ListUsersParams struct {
	UserFilterParams
	Limit  int64
	Offset int64
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	args := append(arg.args(), arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, listUsers, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countFilteredUsers = `-- name: CountFilteredUsers :one
SELECT COUNT(*) FROM users` + userFilter

func (q *Queries) CountFilteredUsers(ctx context.Context, arg UserFilterParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countFilteredUsers, arg.args()...).Scan(&count)
	return count, err
}

const countUsers = `-- name: CountUsers :one
SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}

const deleteUser = `-- name: DeleteUser :execrows
DELETE FROM users WHERE id = ?`

func (q *Queries) DeleteUser(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const clearExpiredVerificationCodes = `-- name: ClearExpiredVerificationCodes :execrows
UPDATE users
SET verification_code = NULL, verification_expires_at = NULL
WHERE verification_code IS NOT NULL AND verification_expires_at <= ?`

func (q *Queries) ClearExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearExpiredVerificationCodes, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

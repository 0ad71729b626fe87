package gen

import (
	"database/sql"
	"time"
)

// User is the public projection of a users row: no password hash, refresh
// token or verification code.
type User struct {
	ID              string
	Name            string
	Email           string
	Avatar          string
	Role            string
	Status          string
	IsEmailVerified bool
	GoogleID        sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

type UserWithRefreshToken struct {
	User
	RefreshToken sql.NullString
}

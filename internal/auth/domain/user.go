package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is a user's platform role. The database stores the upper-case form;
// JSON uses lower-case.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts any casing.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(string(r)))
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Status is the account lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(string(s)))
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// User is an account. PasswordHash, RefreshToken and the verification code
// fields are only populated by the store's WithPassword / WithRefreshToken
// reads and are never serialized.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Avatar          string    `json:"avatar,omitempty"`
	Role            Role      `json:"role"`
	Status          Status    `json:"status"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	GoogleID        string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	PasswordHash          string     `json:"-"`
	RefreshToken          string     `json:"-"` // fingerprint of the active refresh token
	VerificationCode      string     `json:"-"` // sha256 hex digest
	VerificationExpiresAt *time.Time `json:"-"`
}

// CanLogin reports whether the account may start a session.
func (u User) CanLogin() bool {
	return u.IsEmailVerified && u.Status == StatusActive
}

// NormalizeEmail lower-cases and trims an address. Every store read and
// write goes through it so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch is a partial update. Nil fields are left unchanged.
type UserPatch struct {
	Name   *string
	Email  *string
	Avatar *string
	Status *Status
	Role   *Role
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Avatar == nil && p.Status == nil && p.Role == nil
}

// UserFilter selects users for listing. Zero values mean "any".
type UserFilter struct {
	Role   Role
	Status Status
	Search string // substring of name or email
	Limit  int
	Offset int
}

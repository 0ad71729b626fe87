package authsdk

import "time"

// Roles and statuses as they appear on the wire.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"

	StatusPending   = "pending"
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// ============================================================================
// Envelopes
// ============================================================================

// Response is the success envelope every JSON endpoint returns.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Errors  []string `json:"errors,omitempty"`
}

// ============================================================================
// Resources
// ============================================================================

// User is the public view of an account. Secrets are never sent.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Avatar          string    `json:"avatar,omitempty"`
	Role            string    `json:"role"`
	Status          string    `json:"status"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Tokens is an access/refresh pair. ExpiresIn is the access token lifetime
// in seconds.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// AuthResponse is returned by register, login and the Google callback.
type AuthResponse struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role is student or teacher; empty means student.
	Role string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type VerifyEmailRequest struct {
	Code string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// UpdateProfileRequest changes the caller's own account. Nil fields are
// left alone.
type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Status *string `json:"status,omitempty"`
}

type UpdateUserStatusRequest struct {
	Status string `json:"status"`
}

// ListUsersParams filters the admin user listing. Zero values are omitted.
type ListUsersParams struct {
	Role   string
	Status string
	Search string
	Page   int
	Limit  int
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz; only readyz fills Checks.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency readyz probes.
type HealthChecks struct {
	Database string `json:"database"`
	// Limiter is the shared failure counter; "disabled" when running
	// in-process only.
	Limiter string `json:"limiter"`
}

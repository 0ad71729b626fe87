// Package apperr is the closed error taxonomy shared by services and HTTP
// handlers. Every error that can reach a client is an *Error with a Kind and
// a stable machine-readable Code; Translate is the only place a Kind becomes
// an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Stable error codes. Clients switch on these, so never rename one.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeBadRequest             = "BAD_REQUEST"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeMissingToken           = "MISSING_TOKEN"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeNotAuthenticated       = "NOT_AUTHENTICATED"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeForbidden              = "FORBIDDEN"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSIONS"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"

	CodeEmailInUse              = "EMAIL_IN_USE"
	CodeEmailNotVerified        = "EMAIL_NOT_VERIFIED"
	CodeEmailAlreadyVerified    = "EMAIL_ALREADY_VERIFIED"
	CodeAccountInactive         = "ACCOUNT_INACTIVE"
	CodeInvalidRefreshToken     = "INVALID_REFRESH_TOKEN"
	CodeInvalidVerificationCode = "INVALID_VERIFICATION_CODE"
	CodeInvalidPassword         = "INVALID_PASSWORD"
	CodeRoleNotAllowed          = "ROLE_NOT_ALLOWED"
)

// Error is a typed application error. Message is safe to show to a client;
// Err is the underlying cause and is only ever logged.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Kind and Code, so a sentinel
// declared as a package variable still matches after With* copies it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a different client-facing message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds a validation error from field -> message pairs.
func Validation(fields map[string]string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: "validation error",
		Fields:  fields,
	}
}

func BadRequest(code, message string) *Error {
	return New(KindBadRequest, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func TooManyRequests(message string) *Error {
	return New(KindTooManyRequests, CodeRateLimited, message)
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    CodeInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// As extracts an *Error from err. Anything that is not already typed is
// treated as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// KindOf reports the Kind of err, KindInternal for untyped errors.
func KindOf(err error) Kind {
	return As(err).Kind
}

// Status maps a Kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

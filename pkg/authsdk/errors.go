package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/eduflowhub/eduflow/pkg/apperr"
)

// Error codes the service returns. They are the server's own constants so
// the two can never drift.
const (
	ErrorCodeValidation             = apperr.CodeValidation
	ErrorCodeBadRequest             = apperr.CodeBadRequest
	ErrorCodeMissingToken           = apperr.CodeMissingToken
	ErrorCodeTokenExpired           = apperr.CodeTokenExpired
	ErrorCodeInvalidToken           = apperr.CodeInvalidToken
	ErrorCodeInvalidCredentials     = apperr.CodeInvalidCredentials
	ErrorCodeInsufficientPermission = apperr.CodeInsufficientPermission
	ErrorCodeNotFound               = apperr.CodeNotFound
	ErrorCodeRateLimited            = apperr.CodeRateLimited
	ErrorCodeInternal               = apperr.CodeInternal
	ErrorCodeEmailInUse             = apperr.CodeEmailInUse
	ErrorCodeEmailNotVerified       = apperr.CodeEmailNotVerified
	ErrorCodeEmailAlreadyVerified   = apperr.CodeEmailAlreadyVerified
	ErrorCodeAccountInactive        = apperr.CodeAccountInactive
	ErrorCodeInvalidRefreshToken    = apperr.CodeInvalidRefreshToken
	ErrorCodeInvalidVerification    = apperr.CodeInvalidVerificationCode
	ErrorCodeInvalidPassword        = apperr.CodeInvalidPassword
	ErrorCodeRoleNotAllowed         = apperr.CodeRoleNotAllowed
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%d %s: %s (%s)", e.StatusCode, e.Code, e.Message, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// HasCode reports whether err is an *APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// StatusOf returns the HTTP status of an *APIError, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ValidationError is returned before any request is sent when a request
// DTO fails Validate.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

// parseErrorResponse turns a non-2xx response into an *APIError, falling
// back to the status text when the body is not the error envelope.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Code != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
			Errors:     env.Errors,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       http.StatusText(resp.StatusCode),
		Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
	}
}

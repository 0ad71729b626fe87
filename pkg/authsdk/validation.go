package authsdk

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const requiredReason = "required"

var reCode = regexp.MustCompile(`^[0-9]{5}$`)

// Validate returns field name to message, or nil when the request is valid.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateName(errs, "name", r.Name)
	validateEmail(errs, "email", r.Email)
	validatePassword(errs, "password", r.Password)
	if r.Role != "" {
		switch strings.ToLower(r.Role) {
		case RoleStudent, RoleTeacher:
		case RoleAdmin:
			// Rejected by the service with 403 so the client learns why.
		default:
			errs["role"] = "must be student or teacher"
		}
	}
	return result(errs)
}

func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, "email", r.Email)
	if r.Password == "" {
		errs["password"] = requiredReason
	}
	return result(errs)
}

func (r RefreshTokenRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.RefreshToken) == "" {
		errs["refreshToken"] = requiredReason
	}
	return result(errs)
}

func (r VerifyEmailRequest) Validate() map[string]string {
	errs := make(map[string]string)
	code := strings.TrimSpace(r.Code)
	switch {
	case code == "":
		errs["code"] = requiredReason
	case !reCode.MatchString(code):
		errs["code"] = "must be 5 digits"
	}
	return result(errs)
}

func (r ResendVerificationRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, "email", r.Email)
	return result(errs)
}

func (r UpdateProfileRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name != nil {
		validateName(errs, "name", *r.Name)
	}
	if r.Email != nil {
		validateEmail(errs, "email", *r.Email)
	}
	if r.Avatar != nil {
		validateAvatar(errs, "avatar", *r.Avatar)
	}
	return result(errs)
}

func (r ChangePasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.CurrentPassword == "" {
		errs["currentPassword"] = requiredReason
	}
	validatePassword(errs, "newPassword", r.NewPassword)
	return result(errs)
}

func (r CreateUserRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateName(errs, "name", r.Name)
	validateEmail(errs, "email", r.Email)
	validatePassword(errs, "password", r.Password)
	switch strings.ToLower(r.Role) {
	case RoleStudent, RoleTeacher, RoleAdmin:
	case "":
		errs["role"] = requiredReason
	default:
		errs["role"] = "must be student, teacher or admin"
	}
	if r.Avatar != "" {
		validateAvatar(errs, "avatar", r.Avatar)
	}
	return result(errs)
}

func (r UpdateUserRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name != nil {
		validateName(errs, "name", *r.Name)
	}
	if r.Email != nil {
		validateEmail(errs, "email", *r.Email)
	}
	if r.Avatar != nil {
		validateAvatar(errs, "avatar", *r.Avatar)
	}
	if r.Status != nil {
		validateStatus(errs, "status", *r.Status)
	}
	return result(errs)
}

func (r UpdateUserStatusRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateStatus(errs, "status", r.Status)
	return result(errs)
}

func result(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateName(errs map[string]string, field, name string) {
	n := len([]rune(strings.TrimSpace(name)))
	switch {
	case n == 0:
		errs[field] = requiredReason
	case n < 2:
		errs[field] = "must be at least 2 characters"
	case n > 50:
		errs[field] = "too long (max 50)"
	}
}

func validateEmail(errs map[string]string, field, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs[field] = requiredReason
		return
	}
	addr, err := mail.ParseAddress(email)
	// ParseAddress also accepts "Name <a@b>"; only a bare address is valid here.
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		errs[field] = "invalid email address"
	}
}

func validatePassword(errs map[string]string, field, pw string) {
	if pw == "" {
		errs[field] = requiredReason
		return
	}
	if len(pw) < 8 {
		errs[field] = "must be at least 8 characters"
		return
	}
	if len(pw) > 128 {
		errs[field] = "too long (max 128)"
		return
	}

	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		errs[field] = "must contain at least one uppercase letter"
	case !lower:
		errs[field] = "must contain at least one lowercase letter"
	case !digit:
		errs[field] = "must contain at least one number"
	}
}

func validateAvatar(errs map[string]string, field, raw string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs[field] = "invalid avatar URL"
	}
}

func validateStatus(errs map[string]string, field, status string) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusPending, StatusActive, StatusInactive, StatusSuspended:
	case "":
		errs[field] = requiredReason
	default:
		errs[field] = "must be pending, active, inactive or suspended"
	}
}

package http

import (
	"net/http"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/authsdk"
	"github.com/eduflowhub/eduflow/pkg/httpx"
)

// AuthHandler serves the /api/v1/auth routes.
type AuthHandler struct {
	Auth *service.AuthService
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a pending account and mails a 5-digit verification code valid for 5 minutes.
//	@Description	The returned tokens work immediately, but logging in again requires a verified email.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"name, email, password, optional role (student|teacher)"
//	@Success		201		{object}	authsdk.Response[authsdk.AuthResponse]
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Role not allowed"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already in use"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/api/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	var role domain.Role
	if req.Role != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			apperr.Write(w, r, apperr.Validation(map[string]string{"role": "must be student or teacher"}))
			return
		}
		role = parsed
	}

	res, err := h.Auth.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "User registered successfully", res)
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Exchanges email and password for a token pair. Requires a verified, active account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.Response[authsdk.AuthResponse]
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid email or password"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Email not verified or account inactive"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited or locked out"
//	@Router			/api/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	res, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Login successful", res)
}

// HandleRefresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Rotates the refresh token. The presented token stops working, even if this call fails afterwards.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshTokenRequest	true	"refreshToken"
//	@Success		200		{object}	authsdk.Response[authsdk.Tokens]
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid or reused refresh token"
//	@Router			/api/v1/auth/refresh-token [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshTokenRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	tokens, err := h.Auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Token refreshed successfully", tokens)
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the caller's refresh token. The access token stays valid until it expires.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Response[any]
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Router			/api/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	if err := h.Auth.Logout(r.Context(), p.UserID); err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Logout successful", nil)
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.Response[authsdk.User]
//	@Failure		401	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse	"Account was deleted"
//	@Router			/api/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	u, err := h.Auth.GetCurrentUser(r.Context(), p.UserID)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User profile retrieved successfully", u)
}

// HandleVerifyEmail godoc
//
//	@Summary		Verify email
//	@Description	Consumes a verification code. Codes are single use and expire after 5 minutes.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyEmailRequest	true	"code"
//	@Success		200		{object}	authsdk.Response[authsdk.User]
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid or expired code"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited or locked out"
//	@Router			/api/v1/auth/verify-email [post].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyEmailRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	u, err := h.Auth.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Email verified successfully", u)
}

// HandleResendVerification godoc
//
//	@Summary		Resend verification code
//	@Description	Mails a new code. The previous code stops working.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResendVerificationRequest	true	"email"
//	@Success		200		{object}	authsdk.Response[any]
//	@Failure		400		{object}	authsdk.ErrorResponse	"Already verified"
//	@Failure		404		{object}	authsdk.ErrorResponse	"No account with this email"
//	@Router			/api/v1/auth/resend-verification [post].
func (h *AuthHandler) HandleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResendVerificationRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	if err := h.Auth.ResendVerificationEmail(r.Context(), req.Email); err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Verification email sent", nil)
}

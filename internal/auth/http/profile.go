package http

import (
	"net/http"

	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/authsdk"
	"github.com/eduflowhub/eduflow/pkg/httpx"
)

// ProfileHandler serves the caller's own account under /api/v1/profile.
type ProfileHandler struct {
	Auth *service.AuthService
}

// HandleGet godoc
//
//	@Summary	Get own profile
//	@Tags		Profile
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	authsdk.Response[authsdk.User]
//	@Failure	401	{object}	authsdk.ErrorResponse
//	@Router		/api/v1/profile [get].
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
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
	httpx.WriteSuccess(w, http.StatusOK, "Profile retrieved successfully", u)
}

// HandleUpdate godoc
//
//	@Summary	Update own profile
//	@Tags		Profile
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		authsdk.UpdateProfileRequest	true	"name, email, avatar (all optional)"
//	@Success	200		{object}	authsdk.Response[authsdk.User]
//	@Failure	400		{object}	authsdk.ErrorResponse
//	@Failure	409		{object}	authsdk.ErrorResponse	"Email already in use"
//	@Router		/api/v1/profile [put].
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	var req authsdk.UpdateProfileRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	u, err := h.Auth.UpdateProfile(r.Context(), p.UserID, service.ProfileUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Profile updated successfully", u)
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Also revokes the refresh token, ending every session on the next refresh.
//	@Tags			Profile
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ChangePasswordRequest	true	"currentPassword, newPassword"
//	@Success		200		{object}	authsdk.Response[any]
//	@Failure		400		{object}	authsdk.ErrorResponse	"Current password is wrong or new password is weak"
//	@Router			/api/v1/profile/change-password [put].
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	var req authsdk.ChangePasswordRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

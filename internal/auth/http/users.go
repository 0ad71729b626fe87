package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/authsdk"
	"github.com/eduflowhub/eduflow/pkg/httpx"
	"github.com/eduflowhub/eduflow/pkg/idx"
)

// UsersHandler serves account administration under /api/v1/users.
type UsersHandler struct {
	Users *service.UserService
}

// pathUserID reads {id}. Anything that is not a ULID cannot name a user.
func pathUserID(r *http.Request) (string, error) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		return "", service.ErrUserNotFound
	}
	return id.String(), nil
}

// HandleList godoc
//
//	@Summary	List users
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		role	query		string	false	"student|teacher|admin"
//	@Param		status	query		string	false	"pending|active|inactive|suspended"
//	@Param		search	query		string	false	"Substring of name or email"
//	@Param		page	query		int		false	"1-based page"			default(1)
//	@Param		limit	query		int		false	"Page size (max 100)"	default(10)
//	@Success	200		{object}	authsdk.Response[authsdk.UserPage]
//	@Failure	400		{object}	authsdk.ErrorResponse
//	@Failure	403		{object}	authsdk.ErrorResponse	"Admin or teacher only"
//	@Router		/api/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	in, err := parseListQuery(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	page, err := h.Users.ListUsers(r.Context(), in)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Users retrieved successfully", page)
}

func parseListQuery(r *http.Request) (service.ListUsersInput, error) {
	q := r.URL.Query()
	errs := map[string]string{}
	in := service.ListUsersInput{Search: strings.TrimSpace(q.Get("search"))}

	if v := q.Get("role"); v != "" {
		role, err := domain.ParseRole(v)
		if err != nil {
			errs["role"] = "must be student, teacher or admin"
		}
		in.Role = role
	}
	if v := q.Get("status"); v != "" {
		st, err := domain.ParseStatus(v)
		if err != nil {
			errs["status"] = "must be pending, active, inactive or suspended"
		}
		in.Status = st
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"page", &in.Page}, {"limit", &in.Limit}} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs[f.name] = "must be a positive integer"
			continue
		}
		*f.dst = n
	}

	if len(errs) > 0 {
		return service.ListUsersInput{}, apperr.Validation(errs)
	}
	return in, nil
}

// HandleGet godoc
//
//	@Summary		Get user
//	@Description	Allowed for the user themselves and for admins.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	authsdk.Response[authsdk.User]
//	@Failure		403	{object}	authsdk.ErrorResponse
//	@Failure		404	{object}	authsdk.ErrorResponse
//	@Router			/api/v1/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathUserID(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	u, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User retrieved successfully", u)
}

// HandleCreate godoc
//
//	@Summary		Create user
//	@Description	Creates an active account with a verified email. Admin only.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateUserRequest	true	"name, email, password, role, avatar"
//	@Success		201		{object}	authsdk.Response[authsdk.User]
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already in use"
//	@Router			/api/v1/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateUserRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		apperr.Write(w, r, apperr.Validation(map[string]string{"role": "must be student, teacher or admin"}))
		return
	}

	u, err := h.Users.CreateUser(r.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		Avatar:   req.Avatar,
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "User created successfully", u)
}

// HandleUpdate godoc
//
//	@Summary		Update user
//	@Description	Setting status to active also verifies the email. Admin only.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"User ID"
//	@Param			request	body		authsdk.UpdateUserRequest	true	"name, email, avatar, status (all optional)"
//	@Success		200		{object}	authsdk.Response[authsdk.User]
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		404		{object}	authsdk.ErrorResponse
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already in use"
//	@Router			/api/v1/users/{id} [put].
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUserID(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	var req authsdk.UpdateUserRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}
	status, err := optionalStatus(req.Status)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	u, err := h.Users.UpdateUser(r.Context(), id, service.UserUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Avatar: req.Avatar,
		Status: status,
	})
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User updated successfully", u)
}

// HandleUpdateStatus godoc
//
//	@Summary	Change user status
//	@Tags		Users
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string							true	"User ID"
//	@Param		request	body		authsdk.UpdateUserStatusRequest	true	"status"
//	@Success	200		{object}	authsdk.Response[authsdk.User]
//	@Failure	400		{object}	authsdk.ErrorResponse
//	@Failure	404		{object}	authsdk.ErrorResponse
//	@Router		/api/v1/users/{id}/status [patch].
func (h *UsersHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUserID(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	var req authsdk.UpdateUserStatusRequest
	if err := decodeValid(w, r, &req); err != nil {
		apperr.Write(w, r, err)
		return
	}
	status, err := optionalStatus(&req.Status)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}

	u, err := h.Users.UpdateUserStatus(r.Context(), id, *status)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User status updated successfully", u)
}

// HandleDelete godoc
//
//	@Summary	Delete user
//	@Tags		Users
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	authsdk.Response[any]
//	@Failure	404	{object}	authsdk.ErrorResponse
//	@Router		/api/v1/users/{id} [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUserID(r)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	if err := h.Users.DeleteUser(r.Context(), id); err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "User deleted successfully", nil)
}

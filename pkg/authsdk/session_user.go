package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ============================================================================
// Own account
// ============================================================================

// Me returns the user the access token belongs to.
func (s *Session) Me(ctx context.Context) (*User, error) {
	return s.getUser(ctx, "/api/v1/auth/me")
}

// GetProfile is Me under the profile routes.
func (s *Session) GetProfile(ctx context.Context) (*User, error) {
	return s.getUser(ctx, "/api/v1/profile")
}

func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/api/v1/profile", req)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword also revokes the refresh token, so the session can no
// longer refresh and should be replaced by a new login.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/api/v1/profile/change-password",
		ChangePasswordRequest{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return err
	}
	_, err = decodeData[struct{}](resp, http.StatusOK)
	return err
}

// ============================================================================
// User administration
// ============================================================================

// ListUsers requires the admin or teacher role.
func (s *Session) ListUsers(ctx context.Context, p ListUsersParams) (*UserPage, error) {
	q := url.Values{}
	if p.Role != "" {
		q.Set("role", p.Role)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	path := "/api/v1/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[UserPage](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser is allowed for the user themselves and for admins.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "/api/v1/users/"+url.PathEscape(id))
}

// CreateUser creates an active, verified account. Admin only.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/v1/users", req)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[User](resp, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser is admin only.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(id), req)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUserStatus is admin only. Setting active also verifies the email.
func (s *Session) UpdateUserStatus(ctx context.Context, id, status string) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPatch, "/api/v1/users/"+url.PathEscape(id)+"/status",
		UpdateUserStatusRequest{Status: status})
	if err != nil {
		return nil, err
	}
	out, err := decodeData[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser is admin only.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/api/v1/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	_, err = decodeData[struct{}](resp, http.StatusOK)
	return err
}

func (s *Session) getUser(ctx context.Context, path string) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	out, err := decodeData[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

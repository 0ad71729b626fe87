package auth_test

import (
	"net/http"
	"testing"

	"github.com/eduflowhub/eduflow/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	client := startAuth(t)

	live, err := client.GetLiveness(t.Context())
	assertHealthy(t, live, err)

	ready, err := client.GetReadiness(t.Context())
	assertHealthy(t, ready, err)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "disabled", ready.Checks.Limiter)
}

func TestRegistration(t *testing.T) {
	client := startAuth(t)
	ctx := t.Context()

	t.Run("creates a pending account that cannot log in yet", func(t *testing.T) {
		resp, err := client.Register(ctx, authsdk.RegisterRequest{
			Name:     "Lê Văn An",
			Email:    "An.Student@Example.com",
			Password: "Student@123",
		})
		require.NoError(t, err)
		require.Equal(t, "an.student@example.com", resp.User.Email)
		require.Equal(t, authsdk.RoleStudent, resp.User.Role)
		require.Equal(t, authsdk.StatusPending, resp.User.Status)
		require.False(t, resp.User.IsEmailVerified)
		require.NotEmpty(t, resp.Tokens.AccessToken)

		_, err = client.Login(ctx, authsdk.LoginRequest{Email: "an.student@example.com", Password: "Student@123"})
		assertCode(t, err, http.StatusForbidden, authsdk.ErrorCodeEmailNotVerified)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		_, err := client.Register(ctx, authsdk.RegisterRequest{
			Name:     "Someone Else",
			Email:    "an.student@example.com",
			Password: "Student@123",
		})
		assertCode(t, err, http.StatusConflict, authsdk.ErrorCodeEmailInUse)
	})

	t.Run("admin role cannot be self-assigned", func(t *testing.T) {
		_, err := client.Register(ctx, authsdk.RegisterRequest{
			Name:     "Would Be Admin",
			Email:    "sneaky@example.com",
			Password: "Student@123",
			Role:     authsdk.RoleAdmin,
		})
		assertCode(t, err, http.StatusForbidden, authsdk.ErrorCodeRoleNotAllowed)
	})

	t.Run("wrong verification code is rejected", func(t *testing.T) {
		_, err := client.VerifyEmail(ctx, "00000")
		assertCode(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidVerification)
	})

	t.Run("resend for an unknown address", func(t *testing.T) {
		err := client.ResendVerification(ctx, "nobody@example.com")
		assertCode(t, err, http.StatusNotFound, authsdk.ErrorCodeNotFound)
	})

	t.Run("resend for a pending account", func(t *testing.T) {
		require.NoError(t, client.ResendVerification(ctx, "an.student@example.com"))
	})
}

func TestLoginAndSession(t *testing.T) {
	client := startAuth(t)
	ctx := t.Context()
	admin := adminSession(t, client)

	me, err := admin.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, adminEmail, me.Email)
	require.Equal(t, authsdk.RoleAdmin, me.Role)
	require.True(t, me.IsEmailVerified)

	t.Run("wrong password and unknown email look alike", func(t *testing.T) {
		_, err := client.Login(ctx, authsdk.LoginRequest{Email: adminEmail, Password: "Wrong@123456"})
		assertCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

		_, err = client.Login(ctx, authsdk.LoginRequest{Email: "ghost@eduflow.com", Password: "Wrong@123456"})
		assertCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	})

	t.Run("refresh rotates and the old token is dead", func(t *testing.T) {
		_, session := createUser(t, client, admin, authsdk.RoleStudent, "rotate@eduflow.com", "Student@123")
		old := session.RefreshToken()

		require.NoError(t, session.Refresh(ctx))
		require.NotEqual(t, old, session.RefreshToken())

		_, err := client.RefreshToken(ctx, old)
		assertCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidRefreshToken)

		_, err = session.Me(ctx)
		require.NoError(t, err)
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		_, session := createUser(t, client, admin, authsdk.RoleTeacher, "logout@eduflow.com", "Teacher@123")
		refresh := session.RefreshToken()

		require.NoError(t, session.Logout(ctx))

		_, err := client.RefreshToken(ctx, refresh)
		assertCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidRefreshToken)
	})

	t.Run("garbage bearer token", func(t *testing.T) {
		session := client.NewSessionFromTokens(authsdk.Tokens{AccessToken: "not-a-jwt", ExpiresIn: 900})
		_, err := session.Me(ctx)
		assertCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})
}

func TestProfile(t *testing.T) {
	client := startAuth(t)
	ctx := t.Context()
	admin := adminSession(t, client)
	_, session := createUser(t, client, admin, authsdk.RoleStudent, "profile@eduflow.com", "Student@123")

	name := "Phạm Thu Hà"
	updated, err := session.UpdateProfile(ctx, authsdk.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)

	taken := adminEmail
	_, err = session.UpdateProfile(ctx, authsdk.UpdateProfileRequest{Email: &taken})
	assertCode(t, err, http.StatusConflict, authsdk.ErrorCodeEmailInUse)

	err = session.ChangePassword(ctx, "Wrong@123", "Student@456")
	assertCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidPassword)

	require.NoError(t, session.ChangePassword(ctx, "Student@123", "Student@456"))

	_, err = client.Login(ctx, authsdk.LoginRequest{Email: "profile@eduflow.com", Password: "Student@123"})
	assertCode(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)

	_, err = client.AuthenticateWithPassword(ctx, "profile@eduflow.com", "Student@456")
	require.NoError(t, err)
}

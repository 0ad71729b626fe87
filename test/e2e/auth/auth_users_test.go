package auth_test

import (
	"net/http"
	"testing"

	"github.com/eduflowhub/eduflow/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestUserAdministration(t *testing.T) {
	client := startAuth(t)
	ctx := t.Context()
	admin := adminSession(t, client)

	teacher, teacherSession := createUser(t, client, admin, authsdk.RoleTeacher, "minh.teacher@eduflow.com", "Teacher@123")
	student, studentSession := createUser(t, client, admin, authsdk.RoleStudent, "mai.student@eduflow.com", "Student@123")

	t.Run("listing filters by role", func(t *testing.T) {
		page, err := admin.ListUsers(ctx, authsdk.ListUsersParams{Role: authsdk.RoleStudent})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, student.ID, page.Users[0].ID)

		page, err = teacherSession.ListUsers(ctx, authsdk.ListUsersParams{Search: "eduflow", Limit: 2})
		require.NoError(t, err)
		require.Equal(t, 3, page.Total)
		require.Len(t, page.Users, 2)
	})

	t.Run("students cannot list users", func(t *testing.T) {
		_, err := studentSession.ListUsers(ctx, authsdk.ListUsersParams{})
		assertCode(t, err, http.StatusForbidden, authsdk.ErrorCodeInsufficientPermission)
	})

	t.Run("owner or admin may read a user", func(t *testing.T) {
		got, err := studentSession.GetUser(ctx, student.ID)
		require.NoError(t, err)
		require.Equal(t, student.Email, got.Email)

		_, err = studentSession.GetUser(ctx, teacher.ID)
		assertCode(t, err, http.StatusForbidden, authsdk.ErrorCodeInsufficientPermission)

		got, err = admin.GetUser(ctx, teacher.ID)
		require.NoError(t, err)
		require.Equal(t, authsdk.RoleTeacher, got.Role)
	})

	t.Run("teachers cannot create users", func(t *testing.T) {
		_, err := teacherSession.CreateUser(ctx, authsdk.CreateUserRequest{
			Name:     "Nope",
			Email:    "nope@eduflow.com",
			Password: "Student@123",
			Role:     authsdk.RoleStudent,
		})
		assertCode(t, err, http.StatusForbidden, authsdk.ErrorCodeInsufficientPermission)
	})

	t.Run("suspension blocks login and refresh", func(t *testing.T) {
		refresh := studentSession.RefreshToken()

		updated, err := admin.UpdateUserStatus(ctx, student.ID, authsdk.StatusSuspended)
		require.NoError(t, err)
		require.Equal(t, authsdk.StatusSuspended, updated.Status)

		_, err = client.Login(ctx, authsdk.LoginRequest{Email: student.Email, Password: "Student@123"})
		assertCode(t, err, http.StatusForbidden, authsdk.ErrorCodeAccountInactive)

		_, err = client.RefreshToken(ctx, refresh)
		assertCode(t, err, http.StatusForbidden, authsdk.ErrorCodeAccountInactive)

		_, err = admin.UpdateUserStatus(ctx, student.ID, authsdk.StatusActive)
		require.NoError(t, err)
		_, err = client.AuthenticateWithPassword(ctx, student.Email, "Student@123")
		require.NoError(t, err)
	})

	t.Run("admin updates then deletes", func(t *testing.T) {
		name := "Nguyễn Văn Minh"
		updated, err := admin.UpdateUser(ctx, teacher.ID, authsdk.UpdateUserRequest{Name: &name})
		require.NoError(t, err)
		require.Equal(t, name, updated.Name)

		require.NoError(t, admin.DeleteUser(ctx, teacher.ID))

		_, err = admin.GetUser(ctx, teacher.ID)
		assertCode(t, err, http.StatusNotFound, authsdk.ErrorCodeNotFound)

		err = admin.DeleteUser(ctx, teacher.ID)
		assertCode(t, err, http.StatusNotFound, authsdk.ErrorCodeNotFound)
	})
}

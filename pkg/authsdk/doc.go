/*
Package authsdk is the Go client for the EduFlow Hub auth service, and the
home of the request and response types the service itself decodes.

# SDKClient vs Session

  - SDKClient: public operations (register, login, refresh, email
    verification, health) and Session creation
  - Session: authenticated operations with automatic token refresh

	client := authsdk.NewSDKClient("http://localhost:8080")

	reg, err := client.Register(ctx, authsdk.RegisterRequest{
		Name:     "Mai",
		Email:    "mai.student@eduflow.com",
		Password: "Student@123",
	})

	// The code arrives by email and is valid for 5 minutes.
	user, err := client.VerifyEmail(ctx, "48213")

	session, err := client.AuthenticateWithPassword(ctx, "mai.student@eduflow.com", "Student@123")
	me, err := session.Me(ctx)

# Token refresh

A Session refreshes its access token 30 seconds before expiry. Refresh
tokens rotate: each refresh invalidates the previous refresh token, so two
processes must never share one Session's tokens. Logout and ChangePassword
revoke the refresh token server side.

# Errors

Non-2xx responses come back as *APIError carrying the service's stable
error code:

	_, err := client.Login(ctx, req)
	if authsdk.HasCode(err, authsdk.ErrorCodeEmailNotVerified) {
		// ask for the verification code
	}

Requests are validated before they are sent; a failing request returns a
*ValidationError and never reaches the network.
*/
package authsdk

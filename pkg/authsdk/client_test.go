package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestClient_LoginAndSession(t *testing.T) {
	var refreshes atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "Student@123" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid email or password","code":"INVALID_CREDENTIALS"}`))
			return
		}
		// Already expired so the first call has to refresh.
		writeEnvelope(w, http.StatusOK, AuthResponse{
			User:   User{ID: "u1", Email: req.Email, Role: RoleStudent},
			Tokens: Tokens{AccessToken: "a0", RefreshToken: "r0", ExpiresIn: 0},
		})
	})
	mux.HandleFunc("POST /api/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		var req RefreshTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "r0", req.RefreshToken)
		refreshes.Add(1)
		writeEnvelope(w, http.StatusOK, Tokens{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: 900})
	})
	mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, User{ID: "u1", Email: "mai@eduflow.com", Role: RoleStudent})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, nil)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := NewSDKClient(srv.URL + "/")

	_, err := c.AuthenticateWithPassword(ctx, "mai@eduflow.com", "wrong")
	require.True(t, HasCode(err, ErrorCodeInvalidCredentials))
	require.Equal(t, http.StatusUnauthorized, StatusOf(err))

	s, err := c.AuthenticateWithPassword(ctx, "mai@eduflow.com", "Student@123")
	require.NoError(t, err)

	me, err := s.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", me.ID)
	require.Equal(t, int32(1), refreshes.Load())
	require.Equal(t, "r1", s.RefreshToken())

	_, err = s.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), refreshes.Load(), "fresh token is reused")

	require.NoError(t, s.Logout(ctx))
	require.Empty(t, s.AccessToken())
	_, err = s.Me(ctx)
	require.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestClient_ValidatesBeforeSending(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	_, err := NewSDKClient(srv.URL).VerifyEmail(context.Background(), "12")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "code")
	require.Zero(t, hits.Load())
}

func TestParseErrorResponse_NonEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSDKClient(srv.URL).GetLiveness(context.Background())
	require.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestGetReadiness_NotReadyKeepsChecks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","checks":{"database":"error: closed","limiter":"disabled"}}`))
	}))
	defer srv.Close()

	health, err := NewSDKClient(srv.URL).GetReadiness(context.Background())
	require.ErrorIs(t, err, ErrNotReady)
	require.NotNil(t, health)
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "error: closed", health.Checks.Database)
}

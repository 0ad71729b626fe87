package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	httpapi "github.com/eduflowhub/eduflow/internal/auth/http"
	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/sqlite"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/limiter"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "router-access-secret-0123456789abcdefgh"
	testRefreshSecret = "router-refresh-secret-0123456789abcdefgh"
)

// codeMailer keeps the last verification code per address.
type codeMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *codeMailer) SendVerification(_ context.Context, email, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[email] = code
	return nil
}

func (m *codeMailer) SendPasswordChanged(context.Context, string, string) error { return nil }

func (m *codeMailer) code(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[email]
	require.True(t, ok, "no code mailed to %s", email)
	return c
}

type testServer struct {
	t        *testing.T
	router   *httpapi.Router
	users    *service.UserService
	mailer   *codeMailer
	failures *limiter.Memory
	ips      atomic.Int64
}

// newServer builds a fully wired router over an in-memory sqlite store.
// configure runs before ApplyRoutes.
func newServer(t *testing.T, configure ...func(*httpapi.Router)) *testServer {
	t.Helper()
	return newServerWithDB(t, nil, configure...)
}

// newServerWithDB is newServer with readyz probing db instead of the store.
func newServerWithDB(t *testing.T, db httpapi.Pinger, configure ...func(*httpapi.Router)) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "eduflow-test",
	})
	require.NoError(t, err)

	passwords := cryptox.PasswordHasher{Algorithm: cryptox.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost}
	mailer := &codeMailer{}
	failures := limiter.NewMemory()

	if db == nil {
		db = st
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := httpapi.NewRouter("test", db, logger)
	r.AuthService = &service.AuthService{
		Store:     st,
		Tokens:    tokens,
		Mailer:    mailer,
		Passwords: passwords,
	}
	r.UserService = &service.UserService{Store: st, Passwords: passwords}
	r.Failures = failures
	for _, fn := range configure {
		fn(r)
	}
	r.ApplyRoutes()

	return &testServer{
		t:        t,
		router:   r,
		users:    r.UserService,
		mailer:   mailer,
		failures: failures,
	}
}

type recorder = httptest.ResponseRecorder

type request struct {
	method string
	path   string
	token  string
	// auth replaces the whole Authorization header when set.
	auth string
	body any
	// raw is sent verbatim instead of a marshalled body.
	raw string
	// ip defaults to a fresh address per request so per-IP rate limits do
	// not interfere with unrelated assertions.
	ip      string
	cookies []*http.Cookie
}

func (s *testServer) do(req request) *recorder {
	s.t.Helper()

	var body io.Reader
	switch {
	case req.raw != "":
		body = strings.NewReader(req.raw)
	case req.body != nil:
		b, err := json.Marshal(req.body)
		require.NoError(s.t, err)
		body = bytes.NewReader(b)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	switch {
	case req.auth != "":
		r.Header.Set("Authorization", req.auth)
	case req.token != "":
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	ip := req.ip
	if ip == "" {
		n := s.ips.Add(1)
		ip = fmt.Sprintf("10.0.%d.%d", n/250, n%250+1)
	}
	r.Header.Set("X-Forwarded-For", ip)
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, r)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// data asserts a success status and decodes the envelope payload.
func data[T any](t *testing.T, rec *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.True(t, env.Success)

	var out T
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &out))
	}
	return out
}

// failure asserts an error status and code and returns the envelope.
func failure(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) apperr.Response {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())

	var resp apperr.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Success)
	require.Equal(t, code, resp.Code)
	return resp
}

type userJSON struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Avatar          string `json:"avatar"`
	Role            string `json:"role"`
	Status          string `json:"status"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

type tokensJSON struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type authJSON struct {
	User   userJSON   `json:"user"`
	Tokens tokensJSON `json:"tokens"`
}

// seedUser creates an active, verified account directly through the service.
func (s *testServer) seedUser(role domain.Role, email, password string) domain.User {
	s.t.Helper()
	u, err := s.users.CreateUser(context.Background(), service.CreateUserInput{
		Name:     "Seeded " + string(role),
		Email:    email,
		Password: password,
		Role:     role,
	})
	require.NoError(s.t, err)
	return u
}

func (s *testServer) login(email, password string) authJSON {
	s.t.Helper()
	rec := s.do(request{
		method: http.MethodPost,
		path:   "/api/v1/auth/login",
		body:   map[string]string{"email": email, "password": password},
	})
	return data[authJSON](s.t, rec, http.StatusOK)
}

// fakeProvider stands in for Google.
type fakeProvider struct {
	profile domain.GoogleProfile
	err     error
	codes   []string
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.test/o/oauth2/auth?state=" + state
}

func (f *fakeProvider) ResolveProfile(_ context.Context, code string) (domain.GoogleProfile, error) {
	f.codes = append(f.codes, code)
	return f.profile, f.err
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/store/drivers/sqlite"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdefghij"
	testRefreshSecret = "test-refresh-secret-0123456789abcdefghij"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	Kind  string
	Email string
	Name  string
	Code  string
}

// mailer records what would have been sent. Fail makes every send error.
type mailer struct {
	mu   sync.Mutex
	sent []sentMail
	Fail bool
}

var errMailDown = errors.New("smtp: connection refused")

func (m *mailer) SendVerification(_ context.Context, email, name, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errMailDown
	}
	m.sent = append(m.sent, sentMail{Kind: "verification", Email: email, Name: name, Code: code})
	return nil
}

func (m *mailer) SendPasswordChanged(_ context.Context, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errMailDown
	}
	m.sent = append(m.sent, sentMail{Kind: "password_changed", Email: email, Name: name})
	return nil
}

// lastCode returns the most recent verification code mailed to email.
func (m *mailer) lastCode(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == "verification" && m.sent[i].Email == email {
			return m.sent[i].Code
		}
	}
	t.Fatalf("no verification code sent to %s", email)
	return ""
}

type fixture struct {
	store  *sqlite.Store
	clock  *clock
	mailer *mailer
	tokens *TokenService
	auth   *AuthService
	users  *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	c := newClock()
	st.SetClock(c.Now)

	tokens, err := NewTokenService(TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "eduflow-test",
		Now:           c.Now,
	})
	require.NoError(t, err)

	passwords := cryptox.PasswordHasher{Algorithm: cryptox.AlgorithmBcrypt, BcryptCost: bcrypt.MinCost}
	m := &mailer{}

	return &fixture{
		store:  st,
		clock:  c,
		mailer: m,
		tokens: tokens,
		auth: &AuthService{
			Store:     st,
			Tokens:    tokens,
			Codes:     VerificationCodes{Now: c.Now},
			Mailer:    m,
			Passwords: passwords,
			Now:       c.Now,
		},
		users: &UserService{
			Store:     st,
			Passwords: passwords,
			Now:       c.Now,
		},
	}
}

package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eduflowhub/eduflow/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"remote address", nil, "192.168.1.1"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1"}, "203.0.113.1"},
		{"real ip header", map[string]string{"X-Real-IP": "203.0.113.2"}, "203.0.113.2"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "203.0.113.2"}, "203.0.113.1"},
		{"ipv6 forwarded", map[string]string{"X-Forwarded-For": "2001:db8::1"}, "2001:db8::1"},
		{"garbage headers fall back", map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "attacker-chosen"}, "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"normalizes email", `{"email":"  Mai.Student@EduFlow.com ","password":"x"}`, "mai.student@eduflow.com"},
		{"missing field", `{"name":"x"}`, ""},
		{"field is not a string", `{"email":42}`, ""},
		{"form body", "email=a@b.co", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			require.Equal(t, tt.want, httpx.JSONFieldKeyExtractor("email")(req))

			// The handler still sees the whole body.
			rest, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.Equal(t, tt.body, string(rest))
		})
	}
}

func TestCompositeKeyExtractor(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.JSONFieldKeyExtractor("email"))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"Mai@EduFlow.com"}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:mai@eduflow.com", extract(req))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", extract(req))
}

func TestUserIDKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, httpx.UserIDKeyExtractor(req))

	ctx := httpx.WithPrincipal(req.Context(), httpx.Principal{UserID: "01JTEACHER", Role: "TEACHER"})
	require.Equal(t, "01JTEACHER", httpx.UserIDKeyExtractor(req.WithContext(ctx)))
}

package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/pkg/apperr"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/httpx"
	"github.com/eduflowhub/eduflow/pkg/slogx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleStateCookie = "eduflow_google_state"
	googleStateTTL    = 10 * time.Minute

	// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var (
	errGoogleState  = apperr.BadRequest(apperr.CodeBadRequest, "Google sign-in state is missing or does not match")
	errGoogleDenied = apperr.BadRequest(apperr.CodeBadRequest, "Google sign-in was cancelled")
	errGoogleFailed = apperr.BadRequest(apperr.CodeBadRequest, "Google sign-in failed")
)

// GoogleProvider turns an authorization code into a Google profile.
type GoogleProvider interface {
	AuthURL(state string) string
	ResolveProfile(ctx context.Context, code string) (domain.GoogleProfile, error)
}

// GoogleOAuth is the GoogleProvider backed by golang.org/x/oauth2.
type GoogleOAuth struct {
	Config      *oauth2.Config
	UserInfoURL string
}

func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: GoogleUserInfoURL,
	}
}

func (g *GoogleOAuth) AuthURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleOAuth) ResolveProfile(ctx context.Context, code string) (domain.GoogleProfile, error) {
	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return domain.GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return domain.GoogleProfile{}, err
	}
	resp, err := g.Config.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.GoogleProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GoogleProfile{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var p domain.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.GoogleProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return p, nil
}

// GoogleHandler runs the authorization code flow. The state parameter is
// bound to the browser with a short-lived HttpOnly cookie.
type GoogleHandler struct {
	Auth     *service.AuthService
	Provider GoogleProvider
	// SecureCookie should be true whenever the service is behind TLS.
	SecureCookie bool
}

// HandleStart godoc
//
//	@Summary	Start Google sign-in
//	@Tags		Auth
//	@Success	302
//	@Router		/api/v1/auth/google [get].
func (h *GoogleHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	state, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		apperr.Write(w, r, apperr.Internal(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     googleStateCookie,
		Value:    state,
		Path:     "/api/v1/auth/google",
		MaxAge:   int(googleStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.NoCache(w)
	http.Redirect(w, r, h.Provider.AuthURL(state), http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		Google sign-in callback
//	@Description	Links the Google account by email or creates an active student account.
//	@Tags			Auth
//	@Produce		json
//	@Param			code	query		string	true	"Authorization code"
//	@Param			state	query		string	true	"State from the start redirect"
//	@Success		200		{object}	authsdk.Response[authsdk.AuthResponse]
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Failure		403		{object}	authsdk.ErrorResponse	"Google email unverified or account inactive"
//	@Router			/api/v1/auth/google/callback [get].
func (h *GoogleHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	// The state is single use whatever happens next.
	http.SetCookie(w, &http.Cookie{
		Name:     googleStateCookie,
		Path:     "/api/v1/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	if q.Get("error") != "" {
		apperr.Write(w, r, errGoogleDenied)
		return
	}

	cookie, err := r.Cookie(googleStateCookie)
	state := q.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		apperr.Write(w, r, errGoogleState)
		return
	}

	code := q.Get("code")
	if code == "" {
		apperr.Write(w, r, errGoogleFailed)
		return
	}

	profile, err := h.Provider.ResolveProfile(ctx, code)
	if err != nil {
		slogx.FromContext(ctx).Warn("google profile resolution failed", slog.Any("error", err))
		apperr.Write(w, r, errGoogleFailed)
		return
	}

	res, err := h.Auth.LoginWithGoogle(ctx, profile)
	if err != nil {
		apperr.Write(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Login successful", res)
}

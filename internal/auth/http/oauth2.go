package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/federation"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/aussiebroadwan/techpost/pkg/httpx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

const (
	stateCookieName = "oauth2_state"
	stateTTL        = 10 * time.Minute
	stateBytes      = 24
)

// FederatedHandler runs the provider redirect and the code callback of a
// federated login.
type FederatedHandler struct {
	Providers *federation.Registry
	Unifier   *service.IdentityUnifier
	Sessions  *service.SessionAuthority
	Cookie    httpx.CookieConfig

	// SuccessURL receives ?accessToken= after a login. When empty the
	// callback answers with the token JSON instead.
	SuccessURL string

	// FailureURL receives ?error=<code>. When empty failures are JSON.
	FailureURL string
}

func (h *FederatedHandler) stateCookie() httpx.CookieConfig {
	return httpx.CookieConfig{
		Name:     stateCookieName,
		Path:     "/login/oauth2/",
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *FederatedHandler) lookup(name string) (*federation.Client, error) {
	if h.Providers == nil {
		return nil, service.ErrUnsupportedProvider
	}
	c, err := h.Providers.Lookup(name)
	if err != nil {
		return nil, service.ErrUnsupportedProvider
	}
	return c, nil
}

// HandleAuthorize godoc
//
//	@Summary		Start a federated login
//	@Description	Redirects to the provider's consent page with a fresh state value.
//	@Tags			Federated
//	@Param			provider	path	string	true	"Provider"	Enums(google, naver, kakao)
//	@Success		302
//	@Failure		401	{object}	authsdk.APIError	"UNSUPPORTED_PROVIDER"
//	@Router			/oauth2/authorization/{provider} [get].
func (h *FederatedHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	client, err := h.lookup(r.PathValue("provider"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	state, err := cryptox.GenerateToken(stateBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.stateCookie().SetCookie(w, state, stateTTL)
	http.Redirect(w, r, client.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		Finish a federated login
//	@Description	Exchanges the authorization code, resolves the local account and opens a session.
//	@Description	Redirects to the configured success or failure URL when set.
//	@Tags			Federated
//	@Produce		json
//	@Param			provider	path		string	true	"Provider"	Enums(google, naver, kakao)
//	@Param			code		query		string	true	"Authorization code"
//	@Param			state		query		string	true	"State echoed by the provider"
//	@Success		200			{object}	authsdk.TokenResponse
//	@Success		302
//	@Failure		401			{object}	authsdk.APIError	"OAUTH2_LOGIN_FAILED or UNSUPPORTED_PROVIDER"
//	@Router			/login/oauth2/code/{provider} [get].
func (h *FederatedHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)
	provider := r.PathValue("provider")

	client, err := h.lookup(provider)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	state := h.stateCookie().Read(r)
	h.stateCookie().ClearCookie(w)

	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(q.Get("state"))) != 1 {
		l.Info("federated callback with bad state", "provider", provider)
		h.fail(w, r, service.ErrOAuth2LoginFailed)
		return
	}
	if e := q.Get("error"); e != "" {
		l.Info("provider refused authorization", "provider", provider, "provider_error", e)
		h.fail(w, r, service.ErrOAuth2LoginFailed)
		return
	}

	raw, err := client.Exchange(ctx, q.Get("code"))
	if err != nil {
		l.Warn("federated code exchange failed", "provider", provider, "error", err)
		h.fail(w, r, service.ErrOAuth2LoginFailed)
		return
	}

	p, err := h.Unifier.Resolve(ctx, provider, raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	pair, err := h.Sessions.LoginPrincipal(ctx, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Authorization", "Bearer "+pair.AccessToken)
	h.Cookie.SetCookie(w, pair.RefreshToken, pair.RefreshExpiresIn)

	if h.SuccessURL == "" {
		httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
		return
	}
	http.Redirect(w, r, withQuery(h.SuccessURL, "accessToken", pair.AccessToken), http.StatusFound)
}

func (h *FederatedHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.FailureURL == "" || errors.Is(err, service.ErrTokenServiceUnavailable) {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, withQuery(h.FailureURL, "error", apiError(err).Code), http.StatusFound)
}

// withQuery appends key=value to base, keeping any query it already has.
func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

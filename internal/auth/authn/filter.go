package authn

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/pkg/httpx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by the Filter, if any.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Filter authenticates requests that carry a bearer token. Requests without
// one pass through anonymously; access control is left to RequireAuthenticated
// and httpx.RequireRole further down the chain.
type Filter struct {
	Auth *Authenticator

	// OnError defaults to a 401 (503 for store outages) with the reason code.
	OnError ErrorWriter
}

func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := httpx.BearerToken(r)
		if !ok {
			f.fail(w, r, service.ErrInvalidToken)
			return
		}

		p, err := f.Auth.Authenticate(r.Context(), token)
		if err != nil {
			slogx.FromContext(r.Context()).Info("request authentication failed", "reason", ReasonCode(err))
			f.fail(w, r, err)
			return
		}

		ctx := WithPrincipal(r.Context(), p)
		ctx = httpx.ContextWithIdentity(ctx, p.UserID, p.Role.String())
		ctx = slogx.WithUser(ctx, p.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (f *Filter) fail(w http.ResponseWriter, r *http.Request, err error) {
	if f.OnError != nil {
		f.OnError(w, r, err)
		return
	}
	if errors.Is(err, service.ErrTokenServiceUnavailable) {
		w.Header().Set("Retry-After", "1")
		httpx.WriteError(w, http.StatusServiceUnavailable, ReasonCode(err), "authentication temporarily unavailable")
		return
	}
	httpx.WriteBearerError(w, http.StatusUnauthorized, ReasonCode(err), "authentication failed")
}

// RequireAuthenticated rejects requests the Filter did not authenticate.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			httpx.WriteBearerError(w, http.StatusUnauthorized, "ACCESS_TOKEN_MISSING", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

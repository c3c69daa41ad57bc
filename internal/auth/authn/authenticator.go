// Package authn turns a presented access token into a domain.Principal, for
// HTTP requests (Filter) and for WebSocket channels (ChannelInterceptor).
package authn

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/jwtx"
)

// Authenticator runs the access token checks shared by every transport.
type Authenticator struct {
	Codec        *jwtx.Codec
	Users        store.Users
	StoreTimeout time.Duration
}

// Authenticate verifies the token and re-reads the user, so role changes and
// deleted accounts take effect on the very next request.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, service.ErrAccessTokenMissing
	}

	claims, err := a.Codec.Verify(token)
	if err != nil {
		return domain.Principal{}, service.ErrInvalidToken
	}
	if a.Codec.Expired(claims) {
		return domain.Principal{}, service.ErrAccessTokenExpired
	}
	if claims.ValidateCategory(jwtx.CategoryAccess) != nil {
		return domain.Principal{}, service.ErrWrongTokenCategory
	}

	sctx, cancel := service.StoreContext(ctx, a.StoreTimeout)
	defer cancel()

	u, err := a.Users.GetUserByUsername(sctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Principal{}, service.ErrUserNotFound
		}
		return domain.Principal{}, service.Unavailable(err)
	}
	return u.Principal(), nil
}

var reasonCodes = []struct {
	err  error
	code string
}{
	{service.ErrAccessTokenMissing, "ACCESS_TOKEN_MISSING"},
	{service.ErrAccessTokenExpired, "ACCESS_TOKEN_EXPIRED"},
	{service.ErrInvalidToken, "INVALID_TOKEN"},
	{service.ErrWrongTokenCategory, "INVALID_TOKEN_CATEGORY"},
	{service.ErrUserNotFound, "USER_NOT_FOUND"},
	{service.ErrTokenServiceUnavailable, "TOKEN_SERVICE_UNAVAILABLE"},
}

// ReasonCode is the error catalogue code of an Authenticate failure.
func ReasonCode(err error) string {
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return "INVALID_TOKEN"
}

package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/techpost/internal/auth/authn"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/pkg/authsdk"
	"github.com/aussiebroadwan/techpost/pkg/httpx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

// retryAfterSeconds is advertised on TOKEN_SERVICE_UNAVAILABLE.
const retryAfterSeconds = "1"

// errorTable maps service sentinels to their wire error. Order matters only
// where one error wraps another.
var errorTable = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrUserAlreadyExists, authsdk.ErrUserAlreadyExists},
	{service.ErrValidation, authsdk.ErrValidationFailed},
	{service.ErrAccessTokenMissing, authsdk.ErrAccessTokenMissing},
	{service.ErrAccessTokenExpired, authsdk.ErrAccessTokenExpired},
	{service.ErrInvalidToken, authsdk.ErrInvalidToken},
	{service.ErrWrongTokenCategory, authsdk.ErrInvalidTokenCategory},
	{service.ErrUserNotFound, authsdk.ErrUserNotFound},
	{service.ErrRefreshTokenMissing, authsdk.ErrRefreshTokenMissing},
	{service.ErrRefreshTokenExpired, authsdk.ErrRefreshTokenExpired},
	{service.ErrRefreshTokenNotFound, authsdk.ErrRefreshTokenNotFound},
	{service.ErrUnsupportedProvider, authsdk.ErrUnsupportedProvider},
	{service.ErrOAuth2LoginFailed, authsdk.ErrOAuth2LoginFailed},
	{service.ErrAccessDenied, authsdk.ErrAccessDenied},
	{service.ErrTokenServiceUnavailable, authsdk.ErrTokenServiceUnavailable},
}

// apiError resolves err to its wire error. Unknown errors become
// INTERNAL_ERROR.
func apiError(err error) *authsdk.APIError {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return authsdk.ErrValidationFailed.WithDetails(ve.Fields)
	}
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.api
		}
	}
	return authsdk.ErrInternal
}

// writeError renders a service error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	api := apiError(err)

	switch api.StatusCode {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", retryAfterSeconds)
		slogx.FromContext(r.Context()).Warn("token service unavailable", "error", err)
	case http.StatusInternalServerError:
		slogx.FromContext(r.Context()).Error("unhandled error", "error", err)
	}

	api.WriteError(w)
}

// writeAuthError renders a Filter failure. 401s carry an RFC 6750
// challenge.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	api := apiError(err)
	if api.StatusCode == http.StatusUnauthorized {
		httpx.WriteBearerError(w, api.StatusCode, authn.ReasonCode(err), api.Message)
		return
	}
	writeError(w, r, err)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserAlreadyExists  = errors.New("user_already_exists")
	ErrValidation         = errors.New("validation_failed")

	ErrAccessTokenMissing = errors.New("access_token_missing")
	ErrAccessTokenExpired = errors.New("access_token_expired")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrWrongTokenCategory = errors.New("invalid_token_category")
	ErrUserNotFound       = errors.New("user_not_found")

	ErrRefreshTokenMissing  = errors.New("refresh_token_missing")
	ErrRefreshTokenExpired  = errors.New("refresh_token_expired")
	ErrRefreshTokenNotFound = errors.New("refresh_token_not_found")

	ErrUnsupportedProvider = errors.New("unsupported_provider")
	ErrOAuth2LoginFailed   = errors.New("oauth2_login_failed")

	ErrAccessDenied = errors.New("access_denied")

	// ErrTokenServiceUnavailable wraps store timeouts and outages. Callers
	// must fail closed and may retry later.
	ErrTokenServiceUnavailable = errors.New("token_service_unavailable")
)

// ValidationError lists the offending fields of a request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation_failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreContext bounds a single store call. A zero timeout only inherits the
// caller's deadline.
func StoreContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Unavailable classifies a store error. Not-found and already-exists pass
// through untouched, everything else is reported as an outage.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAlreadyExists) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTokenServiceUnavailable, err)
}

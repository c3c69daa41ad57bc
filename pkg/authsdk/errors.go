package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/techpost/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeUserAlreadyExists       = "USER_ALREADY_EXISTS"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeAccessTokenMissing      = "ACCESS_TOKEN_MISSING"
	CodeAccessTokenExpired      = "ACCESS_TOKEN_EXPIRED"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeInvalidTokenCategory    = "INVALID_TOKEN_CATEGORY"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeRefreshTokenMissing     = "REFRESH_TOKEN_MISSING"
	CodeRefreshTokenExpired     = "REFRESH_TOKEN_EXPIRED"
	CodeRefreshTokenNotFound    = "REFRESH_TOKEN_NOT_FOUND"
	CodeUnsupportedProvider     = "UNSUPPORTED_PROVIDER"
	CodeOAuth2LoginFailed       = "OAUTH2_LOGIN_FAILED"
	CodeAccessDenied            = "ACCESS_DENIED"
	CodeRateLimited             = "RATE_LIMITED"
	CodeTokenServiceUnavailable = "TOKEN_SERVICE_UNAVAILABLE"
	CodeInternalError           = "INTERNAL_ERROR"
	CodeBadRequest              = "BAD_REQUEST"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the uniform error payload {status, code, message}. It is
// written by the server and returned by the SDK client.
type APIError struct {
	StatusCode int               `json:"status"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code, so errors.Is(err, authsdk.ErrRefreshTokenNotFound)
// works on errors decoded by the client.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of e carrying per-field details.
func (e *APIError) WithDetails(details map[string]string) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

// WriteError writes e as the response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, e)
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, Code: code, Message: message}
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrInvalidCredentials      = newAPIError(http.StatusUnauthorized, CodeInvalidCredentials, "invalid username or password")
	ErrUserAlreadyExists       = newAPIError(http.StatusConflict, CodeUserAlreadyExists, "username is already taken")
	ErrValidationFailed        = newAPIError(http.StatusBadRequest, CodeValidationFailed, "request validation failed")
	ErrBadRequest              = newAPIError(http.StatusBadRequest, CodeBadRequest, "malformed request body")
	ErrAccessTokenMissing      = newAPIError(http.StatusUnauthorized, CodeAccessTokenMissing, "access token is missing")
	ErrAccessTokenExpired      = newAPIError(http.StatusUnauthorized, CodeAccessTokenExpired, "access token has expired")
	ErrInvalidToken            = newAPIError(http.StatusUnauthorized, CodeInvalidToken, "token is invalid")
	ErrInvalidTokenCategory    = newAPIError(http.StatusUnauthorized, CodeInvalidTokenCategory, "token is of the wrong category")
	ErrUserNotFound            = newAPIError(http.StatusUnauthorized, CodeUserNotFound, "user no longer exists")
	ErrRefreshTokenMissing     = newAPIError(http.StatusUnauthorized, CodeRefreshTokenMissing, "refresh token is missing")
	ErrRefreshTokenExpired     = newAPIError(http.StatusUnauthorized, CodeRefreshTokenExpired, "refresh token has expired")
	ErrRefreshTokenNotFound    = newAPIError(http.StatusUnauthorized, CodeRefreshTokenNotFound, "refresh token is not active")
	ErrUnsupportedProvider     = newAPIError(http.StatusUnauthorized, CodeUnsupportedProvider, "identity provider is not supported")
	ErrOAuth2LoginFailed       = newAPIError(http.StatusUnauthorized, CodeOAuth2LoginFailed, "federated login failed")
	ErrAccessDenied            = newAPIError(http.StatusForbidden, CodeAccessDenied, "access denied")
	ErrRateLimited             = newAPIError(http.StatusTooManyRequests, CodeRateLimited, "too many requests")
	ErrTokenServiceUnavailable = newAPIError(http.StatusServiceUnavailable, CodeTokenServiceUnavailable, "token service is temporarily unavailable")
	ErrInternal                = newAPIError(http.StatusInternalServerError, CodeInternalError, "internal server error")
)

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies that
// are not the uniform payload fall back to the status line.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       CodeInternalError,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

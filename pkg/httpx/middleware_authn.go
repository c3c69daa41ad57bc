package httpx

import (
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is absent or uses another scheme.
func BearerToken(r *http.Request) (token string, ok bool) {
	return ParseBearer(r.Header.Get("Authorization"))
}

// ParseBearer does the same as BearerToken for a raw header value.
func ParseBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// WriteBearerError writes an RFC 6750 challenge alongside the uniform error
// payload.
func WriteBearerError(w http.ResponseWriter, status int, code, message string) {
	errParam := "invalid_token"
	if status == http.StatusForbidden {
		errParam = "insufficient_scope"
	}
	w.Header().Set("WWW-Authenticate", `Bearer error="`+errParam+`", error_description="`+code+`"`)
	WriteError(w, status, code, message)
}

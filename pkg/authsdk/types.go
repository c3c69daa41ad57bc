package authsdk

import "time"

// ============================================================================
// Account Types
// ============================================================================

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the public view of an account, returned by signup.
type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PrincipalResponse describes the caller of GET /api/auth/me.
type PrincipalResponse struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is the body of login and reissue. The access token is also
// sent in the Authorization response header, and the refresh token only ever
// travels in the refresh cookie.
type TokenResponse struct {
	// AccessToken is the JWT to present as "Authorization: Bearer <token>"
	AccessToken string `json:"accessToken"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int64 `json:"expiresIn"`
}

// RevokedResponse reports how many refresh records a bulk logout removed.
type RevokedResponse struct {
	Revoked int `json:"revoked"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks holds the /readyz result of each backing store.
type HealthChecks struct {
	// Database is the user store
	Database string `json:"database"`

	// Revocations is the refresh token store (sqlite, valkey or memory)
	Revocations string `json:"revocations"`
}

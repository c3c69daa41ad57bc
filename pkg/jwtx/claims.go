package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTL constants for the access/refresh pair.
// These provide sensible security defaults but can be overridden per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived for security - the client reissues when it lapses.
	DefaultAccessTokenTTL = 30 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens (14 days).
	// The refresh cookie and the revocation record share this lifetime.
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

// Category separates the two token variants. A token of one category is
// never accepted where the other is expected.
type Category string

const (
	CategoryAccess  Category = "access"
	CategoryRefresh Category = "refresh"
)

// Claims are the claims carried by both token variants. Refresh tokens only
// populate the registered claims and Category.
type Claims struct {
	jwt.RegisteredClaims

	// Category is "access" or "refresh"
	Category Category `json:"category"`

	// Role of the user at mint time ("USER", "ADMIN"), access tokens only
	Role string `json:"role,omitempty"`

	// DisplayName is the human readable name for the user, access tokens only
	DisplayName string `json:"name,omitempty"`
}

func newClaims(category Category, subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Category: category,
	}
}

// NewJTI returns a random identifier for the "jti" claim. It keeps two tokens
// minted within the same second distinct.
func NewJTI() string {
	return uuid.NewString()
}

// ExpiredAt reports whether the claims are expired at the given instant.
// A token with exp equal to now is already expired.
func (c *Claims) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateCategory ensures the token is of the expected variant.
func (c *Claims) ValidateCategory(expected Category) error {
	if c.Category != expected {
		return ErrWrongCategory
	}
	return nil
}

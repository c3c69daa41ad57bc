package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CodecOptions configures a Codec. TTLs are taken as given, a zero TTL mints
// tokens that are already expired.
type CodecOptions struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock, mostly for tests. Defaults to time.Now.
	Now func() time.Time
}

// Codec mints and verifies HS256 access and refresh tokens with a single
// symmetric key. It holds no mutable state and is safe for concurrent use.
type Codec struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

var _ Verifier = (*Codec)(nil)

// NewCodec builds a Codec around key. The key is copied so later changes to
// the caller's slice do not leak in.
func NewCodec(key []byte, opts CodecOptions) (*Codec, error) {
	if len(key) < 32 {
		return nil, ErrWeakKey
	}
	if opts.AccessTTL < 0 || opts.RefreshTTL < 0 {
		return nil, fmt.Errorf("jwtx: negative token ttl")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		key:        append([]byte(nil), key...),
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        now,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// MintAccess signs a short-lived access token whose subject is username.
func (c *Codec) MintAccess(username, displayName, role string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidClaim)
	}

	claims := newClaims(CategoryAccess, username, c.issuer, c.accessTTL, c.now())
	claims.Role = role
	claims.DisplayName = displayName

	return c.sign(claims)
}

// MintRefresh signs a long-lived refresh token. It carries no subject, the
// identity is recovered from the paired access token on reissue.
func (c *Codec) MintRefresh() (string, error) {
	return c.sign(newClaims(CategoryRefresh, "", c.issuer, c.refreshTTL, c.now()))
}

func (c *Codec) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.key)
}

// Verify checks signature, algorithm, issuer and claim structure. It does not
// look at exp, so an expired but genuine token verifies fine.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMalformed
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrAlgMismatch
		}
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlgMismatch):
			return nil, ErrAlgMismatch
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSig
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaim
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return nil, err
	}

	switch claims.Category {
	case CategoryAccess:
		if claims.Subject == "" {
			return nil, fmt.Errorf("%w: access token without subject", ErrInvalidClaim)
		}
	case CategoryRefresh:
	default:
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidClaim, claims.Category)
	}

	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidClaim)
	}

	return claims, nil
}

// IsExpired verifies the token and reports whether its exp has passed.
func (c *Codec) IsExpired(tokenStr string) (bool, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return false, err
	}
	return claims.ExpiredAt(c.now()), nil
}

// CategoryOf verifies the token and returns its category.
func (c *Codec) CategoryOf(tokenStr string) (Category, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Category, nil
}

// SubjectEvenIfExpired returns the subject of a genuine token regardless of
// its expiry. Only signature and structure errors fail it.
func (c *Codec) SubjectEvenIfExpired(tokenStr string) (string, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidClaim)
	}
	return claims.Subject, nil
}

// Expired reports whether already verified claims have lapsed on this
// codec's clock.
func (c *Codec) Expired(claims *Claims) bool {
	return claims.ExpiredAt(c.now())
}

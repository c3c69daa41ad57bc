package jwtx

import (
	"errors"
)

// Verifier checks signature and structure of a token and hands back its
// claims. Expiry is deliberately left to the caller.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer        = errors.New("jwtx: issuer mismatch")
	ErrWrongCategory = errors.New("jwtx: wrong token category")
	ErrInvalidClaim  = errors.New("jwtx: invalid claims")
	ErrWeakKey       = errors.New("jwtx: signing key must be at least 32 bytes")
)

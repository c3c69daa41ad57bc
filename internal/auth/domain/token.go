package domain

import "time"

// TokenPair is what a successful login or reissue hands back to the client.
// The access token travels in the Authorization header, the refresh token in
// the refresh cookie.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

// RevocationRecord makes a refresh token revocable. It is keyed by the
// token fingerprint, one record per session, and expires together with the
// token it tracks.
type RevocationRecord struct {
	Key       string // cryptox.FingerprintToken(refresh token)
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TTL returns the remaining lifetime of the record at now.
func (r RevocationRecord) TTL(now time.Time) time.Duration {
	return r.ExpiresAt.Sub(now)
}

// Live reports whether the record has not yet lapsed at now.
func (r RevocationRecord) Live(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

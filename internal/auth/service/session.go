package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/aussiebroadwan/techpost/pkg/idx"
	"github.com/aussiebroadwan/techpost/pkg/jwtx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

// SessionAuthority owns the token lifecycle: it is the only code that
// creates or destroys revocation records.
type SessionAuthority struct {
	Codec        *jwtx.Codec
	Users        store.Users
	Revocations  store.Revocations
	Credentials  *CredentialVerifier
	StoreTimeout time.Duration
	Metrics      *Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *SessionAuthority) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login checks the password and opens a new session.
func (s *SessionAuthority) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Credentials.Verify(ctx, username, password)
	if err != nil {
		s.Metrics.login("failure")
		if errors.Is(err, ErrInvalidCredentials) {
			l.Info("login rejected", "username", username)
		}
		return domain.TokenPair{}, err
	}

	pair, err := s.issue(ctx, u.Principal())
	if err != nil {
		s.Metrics.login("failure")
		return domain.TokenPair{}, err
	}

	s.Metrics.login("success")
	l.Info("login succeeded", "user_id", u.ID)
	return pair, nil
}

// LoginPrincipal opens a session for an identity that was authenticated
// elsewhere, i.e. a federated login resolved by the IdentityUnifier.
func (s *SessionAuthority) LoginPrincipal(ctx context.Context, p domain.Principal) (domain.TokenPair, error) {
	return s.issue(ctx, p)
}

// Reissue rotates a session. The refresh token must verify, be unexpired,
// be a refresh token and still have its revocation record. The username
// comes from the access token, which may be expired.
//
// The old record is consumed atomically before the new one is written, so
// of several concurrent calls with the same refresh token only one wins.
func (s *SessionAuthority) Reissue(ctx context.Context, accessToken, refreshToken string) (domain.TokenPair, error) {
	pair, err := s.reissue(ctx, accessToken, refreshToken)
	if err != nil {
		s.Metrics.reissue(reissueResult(err))
		return domain.TokenPair{}, err
	}
	s.Metrics.reissue("success")
	return pair, nil
}

func (s *SessionAuthority) reissue(ctx context.Context, accessToken, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	// 1. The refresh token itself
	if refreshToken == "" {
		return domain.TokenPair{}, ErrRefreshTokenMissing
	}
	claims, err := s.Codec.Verify(refreshToken)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidToken
	}
	if s.Codec.Expired(claims) {
		return domain.TokenPair{}, ErrRefreshTokenExpired
	}
	if claims.ValidateCategory(jwtx.CategoryRefresh) != nil {
		return domain.TokenPair{}, ErrWrongTokenCategory
	}

	// 2. The subject, from the paired access token
	if accessToken == "" {
		return domain.TokenPair{}, ErrAccessTokenMissing
	}
	username, err := s.Codec.SubjectEvenIfExpired(accessToken)
	if err != nil {
		return domain.TokenPair{}, ErrInvalidToken
	}

	// 3. Cheap rejection of revoked tokens before any minting
	sctx, cancel := StoreContext(ctx, s.StoreTimeout)
	ok, err := s.Revocations.ExistsByToken(sctx, refreshToken)
	cancel()
	if err != nil {
		return domain.TokenPair{}, Unavailable(err)
	}
	if !ok {
		return domain.TokenPair{}, ErrRefreshTokenNotFound
	}

	// 4. Current role and display name
	sctx, cancel = StoreContext(ctx, s.StoreTimeout)
	u, err := s.Users.GetUserByUsername(sctx, username)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUserNotFound
		}
		return domain.TokenPair{}, Unavailable(err)
	}

	// 5. Mint before consuming so a signing failure leaves the session intact
	pair, rec, err := s.mint(u.Principal())
	if err != nil {
		return domain.TokenPair{}, err
	}

	// 6. Atomic compare-and-delete of the old record
	sctx, cancel = StoreContext(ctx, s.StoreTimeout)
	old, err := s.Revocations.ConsumeByToken(sctx, refreshToken)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("reissue lost rotation race", "username", username)
			return domain.TokenPair{}, ErrRefreshTokenNotFound
		}
		return domain.TokenPair{}, Unavailable(err)
	}

	// 7. The refresh token carries no subject, so tie it to the access token
	// through the record. A mismatch leaves the old record consumed.
	if old.Username != username {
		l.Warn("refresh token presented with another user's access token",
			"username", username, "record_username", old.Username)
		return domain.TokenPair{}, ErrInvalidToken
	}

	// 8. Store the successor
	sctx, cancel = StoreContext(ctx, s.StoreTimeout)
	err = s.Revocations.Put(sctx, rec)
	cancel()
	if err != nil {
		l.Error("failed to store rotated refresh token", "username", username, "error", err)
		return domain.TokenPair{}, Unavailable(err)
	}

	l.Info("session rotated", "user_id", u.ID, "refresh", shortFingerprint(rec.Key))
	return pair, nil
}

// Logout revokes the refresh token if it is genuine. It never fails: every
// problem is logged and swallowed so the caller can always clear the cookie.
func (s *SessionAuthority) Logout(ctx context.Context, refreshToken string) {
	l := slogx.FromContext(ctx)
	s.Metrics.logout()

	if refreshToken == "" {
		return
	}

	claims, err := s.Codec.Verify(refreshToken)
	if err != nil || claims.ValidateCategory(jwtx.CategoryRefresh) != nil {
		l.Debug("logout with unusable refresh token", "error", err)
		return
	}

	sctx, cancel := StoreContext(ctx, s.StoreTimeout)
	defer cancel()

	rec, err := s.Revocations.ConsumeByToken(sctx, refreshToken)
	switch {
	case err == nil:
		l.Info("logged out", "username", rec.Username)
	case errors.Is(err, store.ErrNotFound):
		l.Debug("logout of already revoked refresh token")
	default:
		s.Metrics.revocationFailure()
		l.Error("failed to revoke refresh token on logout",
			"refresh", shortFingerprint(cryptox.FingerprintToken(refreshToken)),
			"error", err)
	}
}

// LogoutAll revokes every session of a user and returns how many were live.
func (s *SessionAuthority) LogoutAll(ctx context.Context, username string) (int, error) {
	l := slogx.FromContext(ctx)

	sctx, cancel := StoreContext(ctx, s.StoreTimeout)
	n, err := s.Revocations.DeleteByUsername(sctx, username)
	cancel()
	if err != nil {
		s.Metrics.revocationFailure()
		l.Error("failed to revoke user sessions", "username", username, "error", err)
		return 0, Unavailable(err)
	}

	l.Info("revoked all sessions", "username", username, "count", n)
	return n, nil
}

// Signup creates a password account with role USER.
func (s *SessionAuthority) Signup(ctx context.Context, req SignupRequest) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     req.Username,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		Provider:     domain.ProviderNone,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := StoreContext(ctx, s.StoreTimeout)
	err = s.Users.CreateUser(sctx, u)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserAlreadyExists
		}
		return domain.User{}, Unavailable(err)
	}

	s.Metrics.signup()
	l.Info("user signed up", "user_id", u.ID)
	return u, nil
}

// issue mints a pair for p and records the refresh token.
func (s *SessionAuthority) issue(ctx context.Context, p domain.Principal) (domain.TokenPair, error) {
	pair, rec, err := s.mint(p)
	if err != nil {
		return domain.TokenPair{}, err
	}

	sctx, cancel := StoreContext(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Revocations.Put(sctx, rec); err != nil {
		slogx.FromContext(ctx).Error("failed to store refresh token", "username", p.Username, "error", err)
		return domain.TokenPair{}, Unavailable(err)
	}
	return pair, nil
}

func (s *SessionAuthority) mint(p domain.Principal) (domain.TokenPair, domain.RevocationRecord, error) {
	access, err := s.Codec.MintAccess(p.Username, p.DisplayName, p.Role.String())
	if err != nil {
		return domain.TokenPair{}, domain.RevocationRecord{}, err
	}
	refresh, err := s.Codec.MintRefresh()
	if err != nil {
		return domain.TokenPair{}, domain.RevocationRecord{}, err
	}

	now := s.now()
	rec := domain.RevocationRecord{
		Key:       cryptox.FingerprintToken(refresh),
		Username:  p.Username,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.Codec.RefreshTTL()),
	}
	pair := domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  s.Codec.AccessTTL(),
		RefreshExpiresIn: s.Codec.RefreshTTL(),
	}
	return pair, rec, nil
}

func reissueResult(err error) string {
	switch {
	case errors.Is(err, ErrTokenServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrRefreshTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrRefreshTokenExpired):
		return "expired"
	default:
		return "rejected"
	}
}

// shortFingerprint is enough of a token fingerprint to correlate log lines.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

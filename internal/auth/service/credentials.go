package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

// CredentialVerifier checks a username/password pair against the stored
// argon2 hash.
type CredentialVerifier struct {
	Users        store.Users
	StoreTimeout time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// Verify returns the user when the password matches. Unknown users and wrong
// passwords are indistinguishable to the caller, and both pay for one hash.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	sctx, cancel := StoreContext(ctx, v.StoreTimeout)
	u, err := v.Users.GetUserByUsername(sctx, username)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			v.burnHash(password)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, Unavailable(err)
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unusable", "user_id", u.ID, "error", err)
		}
		return domain.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// burnHash spends the same work as a real verification.
func (v *CredentialVerifier) burnHash(password string) {
	v.dummyOnce.Do(func() {
		v.dummyHash, _ = cryptox.UnusablePasswordHash()
	})
	if v.dummyHash != "" {
		_ = cryptox.VerifyPassword(password, v.dummyHash)
	}
}

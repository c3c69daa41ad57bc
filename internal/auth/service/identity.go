package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/federation"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/aussiebroadwan/techpost/pkg/idx"
	"github.com/aussiebroadwan/techpost/pkg/slogx"
)

// IdentityUnifier maps a federated login onto the local user table,
// provisioning the account on first sight.
type IdentityUnifier struct {
	Users        store.Users
	StoreTimeout time.Duration
	Metrics      *Metrics
}

// Resolve returns the principal for a provider's user info attributes. The
// same (provider, provider id) always resolves to the same user.
func (u *IdentityUnifier) Resolve(ctx context.Context, provider string, raw map[string]any) (domain.Principal, error) {
	l := slogx.FromContext(ctx)

	id, err := federation.Extract(provider, raw)
	if err != nil {
		if errors.Is(err, federation.ErrUnsupportedProvider) {
			return domain.Principal{}, ErrUnsupportedProvider
		}
		l.Warn("federated attributes rejected", "provider", provider, "error", err)
		return domain.Principal{}, ErrOAuth2LoginFailed
	}

	// 1. Reuse the existing account
	user, err := u.lookup(ctx, id)
	if err == nil {
		u.Metrics.federated(provider, false)
		return user.Principal(), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.Principal{}, Unavailable(err)
	}

	// 2. Provision a new one with a password nobody knows
	hash, err := cryptox.UnusablePasswordHash()
	if err != nil {
		return domain.Principal{}, err
	}

	now := time.Now().UTC()
	user = domain.User{
		ID:           idx.New().String(),
		Username:     id.Username(),
		PasswordHash: hash,
		DisplayName:  federatedDisplayName(id),
		Email:        id.Email,
		Provider:     id.Provider,
		ProviderID:   id.ProviderID,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := StoreContext(ctx, u.StoreTimeout)
	err = u.Users.CreateUser(sctx, user)
	cancel()
	switch {
	case err == nil:
		l.Info("provisioned federated account", "provider", provider, "user_id", user.ID)
		u.Metrics.federated(provider, true)
		return user.Principal(), nil

	case errors.Is(err, store.ErrAlreadyExists):
		// 3. A concurrent first login won the insert; use its row
		winner, err := u.lookup(ctx, id)
		if err != nil {
			return domain.Principal{}, Unavailable(err)
		}
		u.Metrics.federated(provider, false)
		return winner.Principal(), nil

	default:
		return domain.Principal{}, Unavailable(err)
	}
}

func (u *IdentityUnifier) lookup(ctx context.Context, id federation.Identity) (domain.User, error) {
	sctx, cancel := StoreContext(ctx, u.StoreTimeout)
	defer cancel()
	return u.Users.GetUserByProvider(sctx, id.Provider, id.ProviderID)
}

// federatedDisplayName falls back to the username and trims to the display
// name limit.
func federatedDisplayName(id federation.Identity) string {
	name := id.Name
	if name == "" {
		name = id.Username()
	}
	if r := []rune(name); len(r) > maxDisplayNameLen {
		name = string(r[:maxDisplayNameLen])
	}
	return name
}

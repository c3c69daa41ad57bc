package service_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func attrs(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestResolveProvisionsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	raw := attrs(t, `{"id":4242,"kakao_account":{"email":"r@example.com","profile":{"nickname":"Ryan"}}}`)

	first, err := f.unifier.Resolve(ctx, "kakao", raw)
	require.NoError(t, err)
	require.Equal(t, "kakao_4242", first.Username)
	require.Equal(t, "Ryan", first.DisplayName)
	require.Equal(t, domain.RoleUser, first.Role)

	second, err := f.unifier.Resolve(ctx, "kakao", raw)
	require.NoError(t, err)
	require.Equal(t, first.UserID, second.UserID)

	u, err := f.store.Users().GetUserByUsername(ctx, "kakao_4242")
	require.NoError(t, err)
	require.Equal(t, "kakao", u.Provider)
	require.Equal(t, "4242", u.ProviderID)
	require.Equal(t, "r@example.com", u.Email)

	// The provisioned password is unusable.
	_, err = f.authority.Login(ctx, "kakao_4242", "")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	// And the principal can open a session.
	pair, err := f.authority.LoginPrincipal(ctx, second)
	require.NoError(t, err)
	_, err = f.authority.Reissue(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
}

func TestResolveConcurrentFirstLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	raw := attrs(t, `{"sub":"1029384756","name":"Gina"}`)

	const racers = 8
	ids := make([]string, racers)
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.unifier.Resolve(ctx, "google", raw)
			ids[i], errs[i] = p.UserID, err
		}()
	}
	wg.Wait()

	for i := range racers {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
}

func TestResolveRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	_, err := f.unifier.Resolve(ctx, "github", attrs(t, `{"id":"1"}`))
	require.ErrorIs(t, err, service.ErrUnsupportedProvider)

	_, err = f.unifier.Resolve(ctx, "naver", attrs(t, `{"resultcode":"00"}`))
	require.ErrorIs(t, err, service.ErrOAuth2LoginFailed)
}

func TestResolveDisplayNameFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	p, err := f.unifier.Resolve(ctx, "naver", attrs(t, `{"response":{"id":"abc"}}`))
	require.NoError(t, err)
	require.Equal(t, "naver_abc", p.DisplayName)

	long := strings.Repeat("가", 40)
	p, err = f.unifier.Resolve(ctx, "google", attrs(t, `{"sub":"7","name":"`+long+`"}`))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("가", 30), p.DisplayName)
}

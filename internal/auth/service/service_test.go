package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/service"
	"github.com/aussiebroadwan/techpost/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/techpost/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/aussiebroadwan/techpost/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "techpost-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

const testIssuer = "techpost-auth"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	clock       *clock
	store       *sqlite.Store
	revocations *memory.Revocations
	metrics     *service.Metrics
	authority   *service.SessionAuthority
	unifier     *service.IdentityUnifier
}

type fixtureOptions struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	if opts.accessTTL == 0 {
		opts.accessTTL = 30 * time.Minute
	}
	if opts.refreshTTL == 0 {
		opts.refreshTTL = 14 * 24 * time.Hour
	}

	c := &clock{t: time.Now().Truncate(time.Second)}

	st, err := sqlite.NewStore("file::memory:?_time_format=sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), jwtx.CodecOptions{
		Issuer:     testIssuer,
		AccessTTL:  opts.accessTTL,
		RefreshTTL: opts.refreshTTL,
		Now:        c.Now,
	})
	require.NoError(t, err)

	rev := memory.New(c.Now)
	metrics := service.NewMetrics(prometheus.NewRegistry())

	return &fixture{
		clock:       c,
		store:       st,
		revocations: rev,
		metrics:     metrics,
		authority: &service.SessionAuthority{
			Codec:        codec,
			Users:        st.Users(),
			Revocations:  rev,
			Credentials:  &service.CredentialVerifier{Users: st.Users(), StoreTimeout: time.Second},
			StoreTimeout: time.Second,
			Metrics:      metrics,
			Now:          c.Now,
		},
		unifier: &service.IdentityUnifier{
			Users:        st.Users(),
			StoreTimeout: time.Second,
			Metrics:      metrics,
		},
	}
}

func (f *fixture) signup(t *testing.T, username, password, displayName string) {
	t.Helper()
	_, err := f.authority.Signup(context.Background(), service.SignupRequest{
		Username:    username,
		Password:    password,
		DisplayName: displayName,
	})
	require.NoError(t, err)
}

package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/techpost/pkg/authsdk"
)

func testConfig(t *testing.T, backend string) Config {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.DatabaseFile = filepath.Join(dir, "auth.db")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.JWTSecretFile = filepath.Join(dir, "jwt.secret")
	cfg.RevocationBackend = backend
	cfg.LogLevel = "error"
	return cfg
}

func TestApplicationSessionFlow(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			application, err := New(testConfig(t, backend))
			require.NoError(t, err)
			t.Cleanup(func() { _ = application.closeStores() })
			require.NotNil(t, application.housekeepingService)

			srv := httptest.NewServer(application.Handler())
			t.Cleanup(srv.Close)

			client := authsdk.NewSDKClient(srv.URL)
			ctx := t.Context()

			_, err = client.Signup(ctx, authsdk.SignupRequest{
				Username:    "alice",
				Password:    "Secret123!",
				DisplayName: "Alice",
			})
			require.NoError(t, err)

			session, err := client.Login(ctx, "alice", "Secret123!")
			require.NoError(t, err)

			me, err := session.Me(ctx)
			require.NoError(t, err)
			require.Equal(t, "alice", me.Username)
			require.Equal(t, "USER", me.Role)

			require.NoError(t, session.Reissue(ctx))
			require.NoError(t, session.Logout(ctx))

			health, err := client.GetReadiness(ctx)
			require.NoError(t, err)
			require.Equal(t, "ok", health.Status)
		})
	}
}

func TestApplicationMetricsRegistry(t *testing.T) {
	application, err := New(testConfig(t, BackendMemory))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.closeStores() })

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "etcd")
	_, err := New(cfg)
	require.Error(t, err)
}

package valkey

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// testStore connects to VALKEY_TEST_ADDR (default localhost:6379) and skips
// the test when nothing answers. Each test gets its own key prefix.
func testStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("VALKEY_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return connect(t, addr)
}

func connect(t *testing.T, addr string) *Store {
	t.Helper()

	s, err := New(Config{
		Address:   addr,
		KeyPrefix: fmt.Sprintf("techposttest:%s:", t.Name()),
	})
	if err != nil {
		t.Skipf("skipping: could not connect to valkey at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		cleanupTestKeys(t, s)
		_ = s.Close()
	})
	cleanupTestKeys(t, s)
	return s
}

func cleanupTestKeys(t *testing.T, s *Store) {
	t.Helper()

	ctx := context.Background()
	var cursor uint64
	for {
		result, err := s.client.Do(ctx,
			s.client.B().Scan().Cursor(cursor).Match(s.prefix+"*").Count(100).Build(),
		).AsScanEntry()
		if err != nil {
			t.Logf("warning: failed to scan for cleanup: %v", err)
			return
		}
		for _, key := range result.Elements {
			_ = s.client.Do(ctx, s.client.B().Del().Key(key).Build())
		}
		cursor = result.Cursor
		if cursor == 0 {
			return
		}
	}
}

func record(token, username string, issued time.Time, ttl time.Duration) domain.RevocationRecord {
	return domain.RevocationRecord{
		Key:       cryptox.FingerprintToken(token),
		Username:  username,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}
}

func TestNew_MissingAddress(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestStore(t *testing.T) {
	runRevocationSuite(t, testStore(t))
}

// runRevocationSuite exercises a connected store. It is shared with the
// container backed test.
func runRevocationSuite(t *testing.T, s *Store) {
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Ping(ctx))

	t.Run("put and find", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, record("tok-a", "alice01", now.Add(-time.Second), time.Hour)))
		require.NoError(t, s.Put(ctx, record("tok-b", "alice01", now, time.Hour)))

		rec, err := s.FindByToken(ctx, "tok-a")
		require.NoError(t, err)
		require.Equal(t, "alice01", rec.Username)
		require.Equal(t, cryptox.FingerprintToken("tok-a"), rec.Key)

		newest, err := s.FindByUsername(ctx, "alice01")
		require.NoError(t, err)
		require.Equal(t, cryptox.FingerprintToken("tok-b"), newest.Key)

		ok, err := s.ExistsByToken(ctx, "tok-b")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("consume once", func(t *testing.T) {
		_, err := s.ConsumeByToken(ctx, "tok-a")
		require.NoError(t, err)

		_, err = s.ConsumeByToken(ctx, "tok-a")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.FindByToken(ctx, "tok-a")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete by user", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, record("tok-c", "alice01", now, time.Hour)))

		n, err := s.DeleteByUsername(ctx, "alice01")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, err = s.FindByUsername(ctx, "alice01")
		require.ErrorIs(t, err, store.ErrNotFound)

		// Absent records delete cleanly.
		require.NoError(t, s.DeleteByToken(ctx, "tok-c"))
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, record("tok-short", "bob0001", time.Now(), 150*time.Millisecond)))
		require.Eventually(t, func() bool {
			ok, err := s.ExistsByToken(ctx, "tok-short")
			return err == nil && !ok
		}, 5*time.Second, 50*time.Millisecond)

		_, err := s.FindByUsername(ctx, "bob0001")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent consume", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, record("tok-race", "carol01", now, time.Hour)))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.ConsumeByToken(ctx, "tok-race"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})
}

func TestClientOptionIsStandalone(t *testing.T) {
	opt := clientOption(Config{Address: "cache:6379", Password: "pw", DB: 2})

	require.Equal(t, []string{"cache:6379"}, opt.InitAddress)
	require.Equal(t, "pw", opt.Password)
	require.Equal(t, 2, opt.SelectDB)
	require.True(t, opt.ForceSingleClient)
}

package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

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

func put(t *testing.T, r *Revocations, token, username string, issued time.Time, ttl time.Duration) {
	t.Helper()
	require.NoError(t, r.Put(context.Background(), domain.RevocationRecord{
		Key:       cryptox.FingerprintToken(token),
		Username:  username,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}))
}

func TestRevocationsLifecycle(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	r := New(c.Now)

	put(t, r, "a", "alice01", c.Now(), time.Hour)
	c.Advance(time.Second)
	put(t, r, "b", "alice01", c.Now(), time.Hour)
	put(t, r, "c", "bob0001", c.Now(), time.Hour)

	rec, err := r.FindByToken(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "alice01", rec.Username)

	newest, err := r.FindByUsername(ctx, "alice01")
	require.NoError(t, err)
	require.Equal(t, cryptox.FingerprintToken("b"), newest.Key)

	_, err = r.ConsumeByToken(ctx, "a")
	require.NoError(t, err)
	_, err = r.ConsumeByToken(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting an absent record is fine.
	require.NoError(t, r.DeleteByToken(ctx, "a"))
	require.NoError(t, r.DeleteByToken(ctx, "never-issued"))

	n, err := r.DeleteByUsername(ctx, "alice01")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ok, err := r.ExistsByToken(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, r.Len())
}

func TestRevocationsExpiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	r := New(c.Now)

	put(t, r, "short", "alice01", c.Now(), time.Minute)
	put(t, r, "long", "alice01", c.Now(), time.Hour)
	put(t, r, "other", "bob0001", c.Now(), time.Minute)

	c.Advance(time.Minute)

	_, err := r.FindByToken(ctx, "short")
	require.ErrorIs(t, err, store.ErrNotFound)

	rec, err := r.FindByUsername(ctx, "alice01")
	require.NoError(t, err)
	require.Equal(t, cryptox.FingerprintToken("long"), rec.Key)

	n, err := r.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n) // "short" was already dropped lazily
	require.Equal(t, 1, r.Len())
}

func TestRevocationsContextCancelled(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ConsumeByToken(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, r.Ping(ctx), context.Canceled)
}

func TestRevocationsConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	r := New(nil)
	put(t, r, "race", "alice01", time.Now(), time.Hour)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ConsumeByToken(ctx, "race"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

// Package memory is an in-process revocation backend for tests and single
// process development setups. Records vanish on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
)

type Revocations struct {
	mu      sync.Mutex
	records map[string]domain.RevocationRecord
	byUser  map[string]map[string]struct{}
	now     func() time.Time
}

var (
	_ store.Revocations = (*Revocations)(nil)
	_ store.Sweeper     = (*Revocations)(nil)
)

// New returns an empty store. A nil now uses time.Now.
func New(now func() time.Time) *Revocations {
	if now == nil {
		now = time.Now
	}
	return &Revocations{
		records: make(map[string]domain.RevocationRecord),
		byUser:  make(map[string]map[string]struct{}),
		now:     now,
	}
}

func (r *Revocations) Put(ctx context.Context, rec domain.RevocationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.records[rec.Key]; ok {
		r.unindex(old)
	}
	r.records[rec.Key] = rec
	keys, ok := r.byUser[rec.Username]
	if !ok {
		keys = make(map[string]struct{})
		r.byUser[rec.Username] = keys
	}
	keys[rec.Key] = struct{}{}
	return nil
}

func (r *Revocations) FindByToken(ctx context.Context, token string) (domain.RevocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.RevocationRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.live(cryptox.FingerprintToken(token))
	if !ok {
		return domain.RevocationRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (r *Revocations) FindByUsername(ctx context.Context, username string) (domain.RevocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.RevocationRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		newest domain.RevocationRecord
		found  bool
	)
	for key := range r.byUser[username] {
		rec, ok := r.live(key)
		if !ok {
			continue
		}
		if !found || rec.IssuedAt.After(newest.IssuedAt) {
			newest, found = rec, true
		}
	}
	if !found {
		return domain.RevocationRecord{}, store.ErrNotFound
	}
	return newest, nil
}

func (r *Revocations) DeleteByToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[cryptox.FingerprintToken(token)]; ok {
		r.remove(rec)
	}
	return nil
}

func (r *Revocations) ExistsByToken(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.live(cryptox.FingerprintToken(token))
	return ok, nil
}

func (r *Revocations) ConsumeByToken(ctx context.Context, token string) (domain.RevocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.RevocationRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.live(cryptox.FingerprintToken(token))
	if !ok {
		return domain.RevocationRecord{}, store.ErrNotFound
	}
	r.remove(rec)
	return rec, nil
}

func (r *Revocations) DeleteByUsername(ctx context.Context, username string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key := range r.byUser[username] {
		if _, ok := r.live(key); ok {
			n++
		}
		delete(r.records, key)
	}
	delete(r.byUser, username)
	return n, nil
}

func (r *Revocations) DeleteExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for _, rec := range r.records {
		if !rec.Live(now) {
			r.remove(rec)
			n++
		}
	}
	return n, nil
}

func (r *Revocations) Ping(ctx context.Context) error { return ctx.Err() }

// Len returns the number of stored records, expired ones included.
func (r *Revocations) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// live returns the record for key, dropping it if it has expired.
// Callers hold r.mu.
func (r *Revocations) live(key string) (domain.RevocationRecord, bool) {
	rec, ok := r.records[key]
	if !ok {
		return domain.RevocationRecord{}, false
	}
	if !rec.Live(r.now()) {
		r.remove(rec)
		return domain.RevocationRecord{}, false
	}
	return rec, true
}

func (r *Revocations) remove(rec domain.RevocationRecord) {
	delete(r.records, rec.Key)
	r.unindex(rec)
}

func (r *Revocations) unindex(rec domain.RevocationRecord) {
	keys := r.byUser[rec.Username]
	delete(keys, rec.Key)
	if len(keys) == 0 {
		delete(r.byUser, rec.Username)
	}
}

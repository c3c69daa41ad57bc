package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/internal/auth/store/drivers/sqlite/gen"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
)

// Revocations keeps refresh token records in the refresh_tokens table.
// SQLite has no TTLs, so expired rows are hidden by every query and removed
// by DeleteExpired during housekeeping.
type Revocations struct {
	q    *gen.Queries
	ping func(context.Context) error
	now  func() time.Time
}

var (
	_ store.Revocations = (*Revocations)(nil)
	_ store.Sweeper     = (*Revocations)(nil)
)

func (r *Revocations) Put(ctx context.Context, rec domain.RevocationRecord) error {
	return r.q.UpsertRefreshToken(ctx, gen.UpsertRefreshTokenParams{
		TokenHash: rec.Key,
		Username:  rec.Username,
		IssuedAt:  rec.IssuedAt.UnixMilli(),
		ExpiresAt: rec.ExpiresAt.UnixMilli(),
	})
}

func (r *Revocations) FindByToken(ctx context.Context, token string) (domain.RevocationRecord, error) {
	row, err := r.q.GetLiveRefreshToken(ctx, gen.GetLiveRefreshTokenParams{
		TokenHash: cryptox.FingerprintToken(token),
		Now:       r.now().UnixMilli(),
	})
	if err != nil {
		return domain.RevocationRecord{}, mapNotFound(err)
	}
	return mapRefreshToken(row), nil
}

func (r *Revocations) FindByUsername(ctx context.Context, username string) (domain.RevocationRecord, error) {
	row, err := r.q.GetNewestLiveRefreshTokenByUsername(ctx, gen.GetNewestLiveRefreshTokenByUsernameParams{
		Username: username,
		Now:      r.now().UnixMilli(),
	})
	if err != nil {
		return domain.RevocationRecord{}, mapNotFound(err)
	}
	return mapRefreshToken(row), nil
}

func (r *Revocations) DeleteByToken(ctx context.Context, token string) error {
	return r.q.DeleteRefreshToken(ctx, cryptox.FingerprintToken(token))
}

func (r *Revocations) ExistsByToken(ctx context.Context, token string) (bool, error) {
	n, err := r.q.CountLiveRefreshTokens(ctx, gen.CountLiveRefreshTokensParams{
		TokenHash: cryptox.FingerprintToken(token),
		Now:       r.now().UnixMilli(),
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ConsumeByToken relies on DELETE ... RETURNING being a single statement:
// SQLite serialises writers, so only one caller sees the row.
func (r *Revocations) ConsumeByToken(ctx context.Context, token string) (domain.RevocationRecord, error) {
	row, err := r.q.ConsumeRefreshToken(ctx, gen.ConsumeRefreshTokenParams{
		TokenHash: cryptox.FingerprintToken(token),
		Now:       r.now().UnixMilli(),
	})
	if err != nil {
		return domain.RevocationRecord{}, mapNotFound(err)
	}
	return mapRefreshToken(row), nil
}

func (r *Revocations) DeleteByUsername(ctx context.Context, username string) (int, error) {
	n, err := r.q.DeleteUserRefreshTokens(ctx, gen.DeleteUserRefreshTokensParams{
		Username: username,
		Now:      r.now().UnixMilli(),
	})
	return int(n), err
}

func (r *Revocations) DeleteExpired(ctx context.Context) (int, error) {
	n, err := r.q.DeleteExpiredRefreshTokens(ctx, r.now().UnixMilli())
	return int(n), err
}

func (r *Revocations) Ping(ctx context.Context) error { return r.ping(ctx) }

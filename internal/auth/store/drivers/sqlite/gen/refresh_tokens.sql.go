package gen

import (
	"context"
)

const upsertRefreshToken = `-- name: UpsertRefreshToken :exec
INSERT INTO refresh_tokens (token_hash, username, issued_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (token_hash) DO UPDATE SET
  username = excluded.username,
  issued_at = excluded.issued_at,
  expires_at = excluded.expires_at
`

type UpsertRefreshTokenParams struct {
	TokenHash string
	Username  string
	IssuedAt  int64
	ExpiresAt int64
}

func (q *Queries) UpsertRefreshToken(ctx context.Context, arg UpsertRefreshTokenParams) error {
	_, err := q.db.ExecContext(ctx, upsertRefreshToken,
		arg.TokenHash,
		arg.Username,
		arg.IssuedAt,
		arg.ExpiresAt,
	)
	return err
}

const getLiveRefreshToken = `-- name: GetLiveRefreshToken :one
SELECT token_hash, username, issued_at, expires_at FROM refresh_tokens
WHERE token_hash = ? AND expires_at > ?
LIMIT 1
`

type GetLiveRefreshTokenParams struct {
	TokenHash string
	Now       int64
}

func (q *Queries) GetLiveRefreshToken(ctx context.Context, arg GetLiveRefreshTokenParams) (RefreshToken, error) {
	row := q.db.QueryRowContext(ctx, getLiveRefreshToken, arg.TokenHash, arg.Now)
	var i RefreshToken
	err := row.Scan(
		&i.TokenHash,
		&i.Username,
		&i.IssuedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const getNewestLiveRefreshTokenByUsername = `-- name: GetNewestLiveRefreshTokenByUsername :one
SELECT token_hash, username, issued_at, expires_at FROM refresh_tokens
WHERE username = ? AND expires_at > ?
ORDER BY issued_at DESC
LIMIT 1
`

type GetNewestLiveRefreshTokenByUsernameParams struct {
	Username string
	Now      int64
}

func (q *Queries) GetNewestLiveRefreshTokenByUsername(ctx context.Context, arg GetNewestLiveRefreshTokenByUsernameParams) (RefreshToken, error) {
	row := q.db.QueryRowContext(ctx, getNewestLiveRefreshTokenByUsername, arg.Username, arg.Now)
	var i RefreshToken
	err := row.Scan(
		&i.TokenHash,
		&i.Username,
		&i.IssuedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const countLiveRefreshTokens = `-- name: CountLiveRefreshTokens :one
SELECT COUNT(*) FROM refresh_tokens WHERE token_hash = ? AND expires_at > ?
`

type CountLiveRefreshTokensParams struct {
	TokenHash string
	Now       int64
}

func (q *Queries) CountLiveRefreshTokens(ctx context.Context, arg CountLiveRefreshTokensParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countLiveRefreshTokens, arg.TokenHash, arg.Now)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteRefreshToken = `-- name: DeleteRefreshToken :exec
DELETE FROM refresh_tokens WHERE token_hash = ?
`

func (q *Queries) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, deleteRefreshToken, tokenHash)
	return err
}

const consumeRefreshToken = `-- name: ConsumeRefreshToken :one
DELETE FROM refresh_tokens
WHERE token_hash = ? AND expires_at > ?
RETURNING token_hash, username, issued_at, expires_at
`

type ConsumeRefreshTokenParams struct {
	TokenHash string
	Now       int64
}

func (q *Queries) ConsumeRefreshToken(ctx context.Context, arg ConsumeRefreshTokenParams) (RefreshToken, error) {
	row := q.db.QueryRowContext(ctx, consumeRefreshToken, arg.TokenHash, arg.Now)
	var i RefreshToken
	err := row.Scan(
		&i.TokenHash,
		&i.Username,
		&i.IssuedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const deleteUserRefreshTokens = `-- name: DeleteUserRefreshTokens :execrows
DELETE FROM refresh_tokens WHERE username = ? AND expires_at > ?
`

type DeleteUserRefreshTokensParams struct {
	Username string
	Now      int64
}

func (q *Queries) DeleteUserRefreshTokens(ctx context.Context, arg DeleteUserRefreshTokensParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUserRefreshTokens, arg.Username, arg.Now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredRefreshTokens = `-- name: DeleteExpiredRefreshTokens :execrows
DELETE FROM refresh_tokens WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredRefreshTokens(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredRefreshTokens, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Package valkey keeps refresh token records in Valkey (or any Redis
// compatible server). Records carry a native PX expiry equal to the token
// lifetime, so no housekeeping is required.
//
// Key layout, all under the configured prefix:
//
//	rt:<fingerprint>  JSON record, PX = remaining token lifetime
//	user:<username>   sorted set of fingerprints scored by issue time
//
// Index entries may outlive their records; readers drop them lazily.
//
// Only standalone servers are supported. The per-user scripts derive record
// keys from index members, which a cluster cannot route, so the client is
// pinned to a single node.
package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/pkg/cryptox"
)

const (
	DefaultKeyPrefix = "techpost:auth:"

	// connectionVerifyTimeout bounds the initial PING.
	connectionVerifyTimeout = 5 * time.Second
)

type Config struct {
	// Address is the server address, e.g. "localhost:6379".
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	Logger    *slog.Logger
}

type Store struct {
	client valkeygo.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

var _ store.Revocations = (*Store)(nil)

// New connects to the server and verifies the connection with a PING.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("valkey address is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client, err := valkeygo.NewClient(clientOption(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	logger.Info("connected to valkey revocation store",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", prefix)

	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}, nil
}

func clientOption(cfg Config) valkeygo.ClientOption {
	return valkeygo.ClientOption{
		InitAddress:       []string{cfg.Address},
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		ForceSingleClient: true,
	}
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// entry is the stored JSON form of a record.
type entry struct {
	Key       string `json:"key"`
	Username  string `json:"username"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (e entry) record() domain.RevocationRecord {
	return domain.RevocationRecord{
		Key:       e.Key,
		Username:  e.Username,
		IssuedAt:  time.UnixMilli(e.IssuedAt),
		ExpiresAt: time.UnixMilli(e.ExpiresAt),
	}
}

func decode(raw string) (domain.RevocationRecord, error) {
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return domain.RevocationRecord{}, fmt.Errorf("failed to decode revocation record: %w", err)
	}
	return e.record(), nil
}

func (s *Store) recordPrefix() string { return s.prefix + "rt:" }

func (s *Store) recordKey(fingerprint string) string { return s.recordPrefix() + fingerprint }

func (s *Store) userKey(username string) string { return s.prefix + "user:" + username }

// Put writes the record and indexes it under its user. Records whose
// lifetime has already run out are not written.
func (s *Store) Put(ctx context.Context, rec domain.RevocationRecord) error {
	ttl := rec.TTL(s.now())
	if ttl < time.Millisecond {
		return nil
	}

	data, err := json.Marshal(entry{
		Key:       rec.Key,
		Username:  rec.Username,
		IssuedAt:  rec.IssuedAt.UnixMilli(),
		ExpiresAt: rec.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode revocation record: %w", err)
	}

	err = s.client.Do(ctx,
		s.client.B().Eval().Script(luaPut).
			Numkeys(2).
			Key(s.recordKey(rec.Key), s.userKey(rec.Username)).
			Arg(string(data)).
			Arg(strconv.FormatInt(ttl.Milliseconds(), 10)).
			Arg(strconv.FormatInt(rec.IssuedAt.UnixMilli(), 10)).
			Arg(rec.Key).
			Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to store revocation record: %w", err)
	}
	return nil
}

func (s *Store) FindByToken(ctx context.Context, token string) (domain.RevocationRecord, error) {
	raw, err := s.client.Do(ctx,
		s.client.B().Get().Key(s.recordKey(cryptox.FingerprintToken(token))).Build(),
	).ToString()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return domain.RevocationRecord{}, store.ErrNotFound
		}
		return domain.RevocationRecord{}, fmt.Errorf("failed to get revocation record: %w", err)
	}
	return decode(raw)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (domain.RevocationRecord, error) {
	raw, err := s.client.Do(ctx,
		s.client.B().Eval().Script(luaNewestForUser).
			Numkeys(1).
			Key(s.userKey(username)).
			Arg(s.recordPrefix()).
			Build(),
	).ToString()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return domain.RevocationRecord{}, store.ErrNotFound
		}
		return domain.RevocationRecord{}, fmt.Errorf("failed to find user revocation record: %w", err)
	}
	return decode(raw)
}

func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	key := s.recordKey(cryptox.FingerprintToken(token))
	if err := s.client.Do(ctx, s.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete revocation record: %w", err)
	}
	return nil
}

func (s *Store) ExistsByToken(ctx context.Context, token string) (bool, error) {
	key := s.recordKey(cryptox.FingerprintToken(token))
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation record: %w", err)
	}
	return n > 0, nil
}

// ConsumeByToken runs GET and DEL in one script, so a record is handed to
// exactly one caller.
func (s *Store) ConsumeByToken(ctx context.Context, token string) (domain.RevocationRecord, error) {
	raw, err := s.client.Do(ctx,
		s.client.B().Eval().Script(luaConsume).
			Numkeys(1).
			Key(s.recordKey(cryptox.FingerprintToken(token))).
			Build(),
	).ToString()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return domain.RevocationRecord{}, store.ErrNotFound
		}
		return domain.RevocationRecord{}, fmt.Errorf("failed to consume revocation record: %w", err)
	}
	return decode(raw)
}

func (s *Store) DeleteByUsername(ctx context.Context, username string) (int, error) {
	n, err := s.client.Do(ctx,
		s.client.B().Eval().Script(luaDeleteUser).
			Numkeys(1).
			Key(s.userKey(username)).
			Arg(s.recordPrefix()).
			Build(),
	).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to delete user revocation records: %w", err)
	}

	s.logger.Debug("deleted user revocation records", "username", username, "count", n)
	return int(n), nil
}

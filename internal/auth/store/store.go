package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root user data access interface. Concrete drivers (sqlite)
// implement this. Revocation records live behind their own interface so they
// can be backed by a different system than the users.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used by login and by every authenticated request.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByProvider finds a federated account by its provider identity.
	GetUserByProvider(ctx context.Context, provider, providerID string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID). Returns
	// ErrAlreadyExists when the username or provider identity is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// DeleteUser removes the account. Tokens already issued to it fail the
	// live user lookup from then on.
	DeleteUser(ctx context.Context, userID string) error
}

// Revocations tracks the refresh tokens that are still allowed to be
// exchanged. Records are keyed by the refresh token fingerprint and expire
// with the token. Implementations must be safe for concurrent use.
type Revocations interface {
	// Put stores or replaces the record for rec.Key.
	Put(ctx context.Context, rec domain.RevocationRecord) error

	// FindByToken returns the live record for a refresh token.
	FindByToken(ctx context.Context, token string) (domain.RevocationRecord, error)

	// FindByUsername returns the newest live record of a user.
	FindByUsername(ctx context.Context, username string) (domain.RevocationRecord, error)

	// DeleteByToken removes the record of a refresh token. Deleting an absent
	// record is not an error.
	DeleteByToken(ctx context.Context, token string) error

	// ExistsByToken reports whether a live record exists for the token.
	ExistsByToken(ctx context.Context, token string) (bool, error)

	// ConsumeByToken atomically removes and returns the record. Of any number
	// of concurrent callers for the same token at most one gets the record,
	// the rest get ErrNotFound.
	ConsumeByToken(ctx context.Context, token string) (domain.RevocationRecord, error)

	// DeleteByUsername removes every record of a user and returns how many
	// were removed.
	DeleteByUsername(ctx context.Context, username string) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// Sweeper is implemented by revocation backends that cannot expire records
// on their own and rely on housekeeping to drop them.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int, error)
}

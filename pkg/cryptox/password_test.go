package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox-test")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashAndVerifyPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"typical", "Secret123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"max length", strings.Repeat("a1", 10)},
		{"unicode", "비밀번호abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"), hash)
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, VerifyPassword(tt.password, hash))
			require.ErrorIs(t, VerifyPassword(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("Secret123")
	require.NoError(t, err)
	b, err := HashPassword("Secret123")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, VerifyPassword("Secret123", a))
	require.NoError(t, VerifyPassword("Secret123", b))
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"bcrypt", "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"},
		{"wrong version", "$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$m=x,t=3,p=2$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA"},
		{"bad hash", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, VerifyPassword("Secret123", tt.hash), ErrInvalidHash)
		})
	}
}

// A hash only verifies under the pepper it was created with.
func TestPasswordDependsOnPepper(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)

	original := pepperFile
	t.Cleanup(func() { SetPepperPath(original) })

	SetPepperPath(filepath.Join(t.TempDir(), "other-pepper"))
	require.ErrorIs(t, VerifyPassword("Secret123", hash), ErrPasswordMismatch)

	SetPepperPath(original)
	require.NoError(t, VerifyPassword("Secret123", hash))
}

func TestUnusablePasswordHash(t *testing.T) {
	a, err := UnusablePasswordHash()
	require.NoError(t, err)
	b, err := UnusablePasswordHash()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.ErrorIs(t, VerifyPassword("", a), ErrPasswordMismatch)
}

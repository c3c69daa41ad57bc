package app

import (
	"bytes"
	"encoding/base64"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitSigningKeyInline(t *testing.T) {
	raw := bytes.Repeat([]byte{7}, 32)

	key, err := InitSigningKey(Config{JWTSecret: base64.StdEncoding.EncodeToString(raw)}, discardLogger())
	require.NoError(t, err)
	require.Equal(t, raw, key)

	_, err = InitSigningKey(Config{JWTSecret: base64.StdEncoding.EncodeToString(raw[:16])}, discardLogger())
	require.Error(t, err)

	_, err = InitSigningKey(Config{JWTSecret: "%%%"}, discardLogger())
	require.Error(t, err)
}

func TestInitSigningKeyFileIsStable(t *testing.T) {
	cfg := Config{JWTSecretFile: filepath.Join(t.TempDir(), "keys", "jwt.secret")}

	first, err := InitSigningKey(cfg, discardLogger())
	require.NoError(t, err)
	require.Len(t, first, signingKeySize)

	second, err := InitSigningKey(cfg, discardLogger())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestInitSigningKeyEphemeral(t *testing.T) {
	a, err := InitSigningKey(Config{}, discardLogger())
	require.NoError(t, err)
	b, err := InitSigningKey(Config{}, discardLogger())
	require.NoError(t, err)

	require.Len(t, a, signingKeySize)
	require.NotEqual(t, a, b)
}

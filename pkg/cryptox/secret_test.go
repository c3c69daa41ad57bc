package cryptox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateSecret(t *testing.T) {
	t.Run("generates then reloads the same secret", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "jwt.key")

		first, err := LoadOrGenerateSecret(path, 32)
		require.NoError(t, err)
		require.Len(t, first, 32)

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0600), info.Mode().Perm())

		second, err := LoadOrGenerateSecret(path, 32)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("rejects a secret that is too short", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.key")
		require.NoError(t, os.WriteFile(path, []byte("c2hvcnQ"), 0600)) // "short"

		_, err := LoadOrGenerateSecret(path, 32)
		require.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.key")
		require.NoError(t, os.WriteFile(path, []byte("!!! not base64 !!!"), 0600))

		_, err := LoadOrGenerateSecret(path, 32)
		require.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := LoadOrGenerateSecret("", 32)
		require.Error(t, err)
	})
}

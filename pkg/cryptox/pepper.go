package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash
	saltLength  = 16        // Length of the salt
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile = "pepper"
)

// SetPepperPath points the hasher at a pepper file. The pepper is (re)loaded
// lazily on the next hash.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperFile = file
	pepper = ""
}

// Pepper returns the process pepper, loading or generating the pepper file
// on first use.
func Pepper() (string, error) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper, nil
	}

	raw, err := LoadOrGenerateSecret(pepperFile, keyLength)
	if err != nil {
		return "", fmt.Errorf("cryptox: pepper: %w", err)
	}
	pepper = base64.RawURLEncoding.EncodeToString(raw)
	return pepper, nil
}

// LoadOrGenerateSecret reads a base64url secret from path, creating the file
// with size fresh random bytes when it does not exist yet.
func LoadOrGenerateSecret(path string, size int) ([]byte, error) {
	if path == "" {
		return nil, errors.New("cryptox: empty secret path")
	}
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		secret, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("cryptox: decode %s: %w", path, err)
		}
		if len(secret) < size {
			return nil, fmt.Errorf("cryptox: secret in %s is %d bytes, need %d", path, len(secret), size)
		}
		return secret, nil

	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, err
		}

		secret := make([]byte, size)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}

		encoded := base64.RawURLEncoding.EncodeToString(secret)
		if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
			return nil, err
		}
		return secret, nil

	default:
		return nil, err
	}
}

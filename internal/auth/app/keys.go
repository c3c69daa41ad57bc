package app

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/techpost/pkg/cryptox"
)

// signingKeySize is the HS256 key length generated when none is configured.
const signingKeySize = 32

// InitSigningKey resolves the HS256 signing key.
//
// Sources, first match wins:
//   - JWTSecret: a base64 key given inline (AUTH_JWT_SECRET).
//   - JWTSecretFile: a key file, generated on first start so tokens survive
//     restarts.
//   - otherwise a random in-memory key. Every token issued before a restart
//     becomes invalid.
func InitSigningKey(cfg Config, logger *slog.Logger) ([]byte, error) {
	if cfg.JWTSecret != "" {
		key, err := decodeSecret(cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("decode jwt secret: %w", err)
		}
		if len(key) < signingKeySize {
			return nil, fmt.Errorf("jwt secret is %d bytes, need at least %d", len(key), signingKeySize)
		}
		logger.Info("using configured jwt signing key")
		return key, nil
	}

	if cfg.JWTSecretFile != "" {
		key, err := cryptox.LoadOrGenerateSecret(cfg.JWTSecretFile, signingKeySize)
		if err != nil {
			return nil, fmt.Errorf("load jwt secret file: %w", err)
		}
		logger.Info("jwt signing key loaded", "path", cfg.JWTSecretFile)
		return key, nil
	}

	key := make([]byte, signingKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	logger.Warn("generated ephemeral jwt signing key, tokens will not survive a restart")
	return key, nil
}

// decodeSecret accepts standard and url-safe base64, padded or not.
func decodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(s); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("not valid base64")
}

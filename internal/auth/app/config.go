package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/techpost/internal/auth/federation"
)

// Revocation store backends.
const (
	BackendSQLite = "sqlite"
	BackendValkey = "valkey"
	BackendMemory = "memory"
)

type ValkeyConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type Config struct {
	Issuer        string        `yaml:"issuer"`          // Issuer claim of every token (default: techpost-auth)
	JWTSecret     string        `yaml:"jwt_secret"`      // Optional: base64 HS256 key, at least 32 bytes
	JWTSecretFile string        `yaml:"jwt_secret_file"` // Optional: key file, generated on first start
	AccessTTL     time.Duration `yaml:"access_ttl"`      // Access token lifetime (default: 30m)
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`     // Refresh token lifetime (default: 14 days)

	DatabaseFile      string        `yaml:"database_file"`      // SQLite user store (default: ./auth.db)
	PepperFile        string        `yaml:"pepper_file"`        // Password pepper (default: ./pepper)
	RevocationBackend string        `yaml:"revocation_backend"` // sqlite, valkey or memory (default: sqlite)
	Valkey            ValkeyConfig  `yaml:"valkey"`             // Used when RevocationBackend is valkey
	StoreTimeout      time.Duration `yaml:"store_timeout"`      // Bound on every store call (default: 2s)

	CookieSecure    bool                                  `yaml:"cookie_secure"`     // Secure flag of the refresh cookie
	OAuth           map[string]federation.ProviderConfig `yaml:"oauth"`             // Federated providers by name
	OAuthSuccessURL string                                `yaml:"oauth_success_url"` // Optional: redirect after federated login
	OAuthFailureURL string                                `yaml:"oauth_failure_url"` // Optional: redirect after a failed one

	Env                  string        `yaml:"env"`                   // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        `yaml:"log_level"`             // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        `yaml:"log_format"`            // Log format (json, text) (default: json)
	Port                 int           `yaml:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"` // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"` // Expired record sweep interval (default: 1h)
}

// DefaultConfig holds the values used when neither the config file nor the
// environment sets a key.
func DefaultConfig() Config {
	return Config{
		Issuer:               "techpost-auth",
		JWTSecretFile:        "jwt.secret",
		AccessTTL:            30 * time.Minute,
		RefreshTTL:           14 * 24 * time.Hour,
		DatabaseFile:         "auth.db",
		PepperFile:           "pepper",
		RevocationBackend:    BackendSQLite,
		Valkey:               ValkeyConfig{Address: "localhost:6379"},
		StoreTimeout:         2 * time.Second,
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: 1 * time.Hour,
	}
}

// LoadConfig reads the optional YAML file at path, then lets the
// environment override it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("AUTH_CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	cfg.Issuer = getEnvOrDefault("AUTH_ISSUER", cfg.Issuer)
	cfg.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.JWTSecret)
	cfg.JWTSecretFile = getEnvOrDefault("AUTH_JWT_SECRET_FILE", cfg.JWTSecretFile)
	cfg.AccessTTL = getEnvDurationOrDefault("AUTH_ACCESS_TTL", cfg.AccessTTL)
	cfg.RefreshTTL = getEnvDurationOrDefault("AUTH_REFRESH_TTL", cfg.RefreshTTL)

	cfg.DatabaseFile = getEnvOrDefault("AUTH_DATABASE_FILE", cfg.DatabaseFile)
	cfg.PepperFile = getEnvOrDefault("AUTH_PEPPER_FILE", cfg.PepperFile)
	cfg.RevocationBackend = strings.ToLower(getEnvOrDefault("AUTH_REVOCATION_BACKEND", cfg.RevocationBackend))
	cfg.Valkey.Address = getEnvOrDefault("VALKEY_ADDR", cfg.Valkey.Address)
	cfg.Valkey.Password = getEnvOrDefault("VALKEY_PASSWORD", cfg.Valkey.Password)
	cfg.Valkey.DB = getEnvIntOrDefault("VALKEY_DB", cfg.Valkey.DB)
	cfg.Valkey.KeyPrefix = getEnvOrDefault("VALKEY_KEY_PREFIX", cfg.Valkey.KeyPrefix)
	cfg.StoreTimeout = getEnvDurationOrDefault("AUTH_STORE_TIMEOUT", cfg.StoreTimeout)

	cfg.CookieSecure = getEnvBoolOrDefault("AUTH_COOKIE_SECURE", cfg.CookieSecure)
	cfg.OAuthSuccessURL = getEnvOrDefault("AUTH_OAUTH_SUCCESS_URL", cfg.OAuthSuccessURL)
	cfg.OAuthFailureURL = getEnvOrDefault("AUTH_OAUTH_FAILURE_URL", cfg.OAuthFailureURL)
	for _, name := range []string{federation.Google, federation.Naver, federation.Kakao} {
		cfg.applyProviderEnv(name)
	}

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)
}

// applyProviderEnv reads AUTH_OAUTH_<NAME>_CLIENT_ID, _CLIENT_SECRET and
// _REDIRECT_URL.
func (cfg *Config) applyProviderEnv(name string) {
	prefix := "AUTH_OAUTH_" + strings.ToUpper(name) + "_"

	p := cfg.OAuth[name]
	p.ClientID = getEnvOrDefault(prefix+"CLIENT_ID", p.ClientID)
	p.ClientSecret = getEnvOrDefault(prefix+"CLIENT_SECRET", p.ClientSecret)
	p.RedirectURL = getEnvOrDefault(prefix+"REDIRECT_URL", p.RedirectURL)
	if p.ClientID == "" {
		return
	}

	if cfg.OAuth == nil {
		cfg.OAuth = make(map[string]federation.ProviderConfig)
	}
	cfg.OAuth[name] = p
}

// Validate rejects configurations the service cannot start with.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.Issuer == "" {
		errs = append(errs, errors.New("issuer must not be empty"))
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		errs = append(errs, errors.New("token ttls must not be negative"))
	}
	if cfg.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	switch cfg.RevocationBackend {
	case BackendSQLite, BackendMemory:
	case BackendValkey:
		if cfg.Valkey.Address == "" {
			errs = append(errs, errors.New("valkey backend needs VALKEY_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown revocation backend %q", cfg.RevocationBackend))
	}
	for name := range cfg.OAuth {
		if !federation.Supported(name) {
			errs = append(errs, fmt.Errorf("unknown oauth provider %q", name))
		}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", cfg.Port))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

package config

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes every environment override, e.g. PORTAL_REDIS__ADDRESS.
// A double underscore separates nested keys.
const EnvPrefix = "PORTAL_"

// ConfigPathEnvVar points at an optional YAML file layered between defaults and env.
const ConfigPathEnvVar = "CONFIG_PATH"

const (
	UserSourceSeed     = "seed"
	UserSourcePostgres = "postgres"
)

type Config struct {
	Port       string          `koanf:"port"`
	Version    string          `koanf:"version"`
	UserSource string          `koanf:"user_source"`
	Log        LogConfig       `koanf:"log"`
	Session    SessionConfig   `koanf:"session"`
	JWT        JWTConfig       `koanf:"jwt"`
	Redis      RedisConfig     `koanf:"redis"`
	Database   DatabaseConfig  `koanf:"database"`
	RateLimit  RateLimitConfig `koanf:"rate_limit"`
	CORS       CORSConfig      `koanf:"cors"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SessionConfig struct {
	TTL          time.Duration `koanf:"ttl"`
	CookieName   string        `koanf:"cookie_name"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

type JWTConfig struct {
	PrivateKeyPath string `koanf:"private_key_path"`
	PublicKeyPath  string `koanf:"public_key_path"`
}

type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// DatabaseConfig is optional: with an empty URL users come from the seed set
// and audit entries go to the log sink.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type RateLimitConfig struct {
	SignInRequests int           `koanf:"signin_requests"`
	SignInWindow   time.Duration `koanf:"signin_window"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

func defaultConfig() *Config {
	return &Config{
		Port:       "8080",
		Version:    "unknown",
		UserSource: UserSourceSeed,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Session: SessionConfig{
			TTL:          8 * time.Hour,
			CookieName:   "portal_session",
			CookieSecure: true,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			SignInRequests: 10,
			SignInWindow:   time.Minute,
		},
	}
}

// Load layers defaults, an optional YAML file and PORTAL_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps PORTAL_SESSION__COOKIE_NAME to session.cookie_name.
func envKey(s string) string {
	return envKeyWithPrefix(s, EnvPrefix)
}

func envKeyWithPrefix(s, prefix string) string {
	s = strings.ToLower(strings.TrimPrefix(s, prefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}
	if c.Redis.Address == "" {
		errs = append(errs, errors.New("redis.address is required"))
	}
	switch c.UserSource {
	case UserSourceSeed:
	case UserSourcePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required when user_source is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown user_source %q", c.UserSource))
	}
	if c.RateLimit.SignInRequests <= 0 || c.RateLimit.SignInWindow <= 0 {
		errs = append(errs, errors.New("rate_limit.signin_requests and rate_limit.signin_window must be positive"))
	}
	if (c.JWT.PrivateKeyPath == "") != (c.JWT.PublicKeyPath == "") {
		errs = append(errs, errors.New("jwt.private_key_path and jwt.public_key_path must be set together"))
	}

	return errors.Join(errs...)
}

// SigningKeys loads the RS256 key pair. When no paths are configured an
// ephemeral pair is generated and ephemeral is true; tokens then do not
// survive a restart.
func (c *Config) SigningKeys() (priv *rsa.PrivateKey, pub *rsa.PublicKey, ephemeral bool, err error) {
	if c.JWT.PrivateKeyPath == "" {
		priv, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, nil, false, fmt.Errorf("failed to generate signing key: %w", err)
		}
		return priv, &priv.PublicKey, true, nil
	}

	priv, err = loadPrivateKey(c.JWT.PrivateKeyPath)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load private key: %w", err)
	}
	pub, err = loadPublicKey(c.JWT.PublicKeyPath)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load public key: %w", err)
	}
	if !pub.Equal(&priv.PublicKey) {
		return nil, nil, false, errors.New("jwt public key does not match private key")
	}
	return priv, pub, false, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return privateKey, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return publicKey, nil
}

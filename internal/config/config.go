package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DataStoreMemory   = "memory"
	DataStorePostgres = "postgres"
	DataStoreMongo    = "mongo"
)

// Config aggregates runtime configuration for the DSA notes API.
type Config struct {
	Environment    string
	HTTPPort       int
	LogLevel       string
	DataStore      string
	DatabaseURL    string
	MongoURI       string
	MongoDatabase  string
	AllowedOrigins []string
	FrontendURL    string
	Google         GoogleConfig
	Auth           AuthConfig
}

// GoogleConfig is the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// AuthConfig tunes the login flow.
type AuthConfig struct {
	ProviderTimeout       time.Duration
	RefreshProfileOnLogin bool
	VerifyIDToken         bool
	RateLimitPerMinute    int
}

// rawEnv holds the non-secret environment values.
type rawEnv struct {
	Environment           string        `env:"APP_ENV" envDefault:"development"`
	Port                  string        `env:"PORT"`
	HTTPPort              string        `env:"HTTP_PORT" envDefault:"5000"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	DataStore             string        `env:"DATA_STORE" envDefault:"memory"`
	MongoDatabase         string        `env:"MONGODB_DATABASE" envDefault:"dsanotes"`
	RedirectURI           string        `env:"REDIRECT_URI" envDefault:"http://localhost:5000/auth/google/callback"`
	FrontendURL           string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	AllowedOrigins        []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	ProviderTimeout       time.Duration `env:"AUTH_PROVIDER_TIMEOUT" envDefault:"10s"`
	RefreshProfileOnLogin bool          `env:"AUTH_REFRESH_PROFILE_ON_LOGIN" envDefault:"false"`
	VerifyIDToken         bool          `env:"AUTH_VERIFY_ID_TOKEN" envDefault:"false"`
	RateLimitPerMinute    int           `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"60"`
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/dsanotes_database_url")
	if err != nil {
		return Config{}, err
	}
	mongoURI, err := getEnvOrFile("MONGODB_URI", "/run/secrets/dsanotes_mongodb_uri")
	if err != nil {
		return Config{}, err
	}
	clientID, err := getEnvOrFile("GOOGLE_CLIENT_ID", "")
	if err != nil {
		return Config{}, err
	}
	clientSecret, err := getEnvOrFile("GOOGLE_CLIENT_SECRET", "/run/secrets/dsanotes_google_client_secret")
	if err != nil {
		return Config{}, err
	}

	portValue := raw.Port
	if portValue == "" {
		portValue = raw.HTTPPort
	}
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}

	frontendURL := strings.TrimRight(strings.TrimSpace(raw.FrontendURL), "/")
	origins := trimAll(raw.AllowedOrigins)
	if len(origins) == 0 {
		origins = []string{frontendURL}
	}

	cfg := Config{
		Environment:    strings.ToLower(strings.TrimSpace(raw.Environment)),
		HTTPPort:       port,
		LogLevel:       strings.ToLower(raw.LogLevel),
		DataStore:      strings.ToLower(strings.TrimSpace(raw.DataStore)),
		DatabaseURL:    strings.TrimSpace(databaseURL),
		MongoURI:       strings.TrimSpace(mongoURI),
		MongoDatabase:  strings.TrimSpace(raw.MongoDatabase),
		AllowedOrigins: origins,
		FrontendURL:    frontendURL,
		Google: GoogleConfig{
			ClientID:     strings.TrimSpace(clientID),
			ClientSecret: strings.TrimSpace(clientSecret),
			RedirectURI:  strings.TrimSpace(raw.RedirectURI),
		},
		Auth: AuthConfig{
			ProviderTimeout:       raw.ProviderTimeout,
			RefreshProfileOnLogin: raw.RefreshProfileOnLogin,
			VerifyIDToken:         raw.VerifyIDToken,
			RateLimitPerMinute:    raw.RateLimitPerMinute,
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DataStore {
	case DataStoreMemory:
	case DataStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATA_STORE is postgres but DATABASE_URL is not set")
		}
	case DataStoreMongo:
		if c.MongoURI == "" {
			return errors.New("DATA_STORE is mongo but MONGODB_URI is not set")
		}
	default:
		return fmt.Errorf("unsupported DATA_STORE %q", c.DataStore)
	}

	if err := requireAbsoluteURL("FRONTEND_URL", c.FrontendURL); err != nil {
		return err
	}
	if err := requireAbsoluteURL("REDIRECT_URI", c.Google.RedirectURI); err != nil {
		return err
	}
	if c.Auth.ProviderTimeout <= 0 {
		return fmt.Errorf("AUTH_PROVIDER_TIMEOUT must be positive, got %s", c.Auth.ProviderTimeout)
	}
	if c.Auth.RateLimitPerMinute < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.Auth.RateLimitPerMinute)
	}

	if c.IsDevelopment() {
		return nil
	}

	if c.Google.ClientID == "" {
		return errors.New("GOOGLE_CLIENT_ID is required outside development")
	}
	if c.Google.ClientSecret == "" {
		return errors.New("GOOGLE_CLIENT_SECRET is required outside development")
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return errors.New("ALLOWED_ORIGINS must not contain * outside development")
		}
	}
	return nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == DataStoreMemory
}

// IsDevelopment reports whether the service runs in local development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func requireAbsoluteURL(name, value string) error {
	parsed, err := url.Parse(value)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, value)
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}

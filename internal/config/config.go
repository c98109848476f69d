package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix                   = "VITALPLATE"
	defaultHTTPAddress          = "0.0.0.0:8000"
	defaultDatabaseURL          = "vitalplate.db"
	defaultLogLevel             = "info"
	defaultJWTAlgorithm         = "HS256"
	defaultJWTExpirationMinutes = 30
	defaultGoogleTokenInfoURL   = "https://oauth2.googleapis.com/tokeninfo"
	defaultAllowedOrigin        = "http://localhost:3000"
	defaultEnvironment          = EnvironmentDevelopment
	maxJWTExpirationMinutes     = 366 * 24 * 60
)

// legacyEnvNames maps config keys to the unprefixed variable names of
// existing deployments' .env files. Prefixed names take precedence.
var legacyEnvNames = map[string]string{
	"database.url":           "DATABASE_URL",
	"jwt.secret_key":         "JWT_SECRET_KEY",
	"jwt.algorithm":          "JWT_ALGORITHM",
	"jwt.expiration_minutes": "JWT_EXPIRATION_MINUTES",
	"google.client_id":       "GOOGLE_CLIENT_ID",
	"google.client_secret":   "GOOGLE_CLIENT_SECRET",
	"environment":            "ENVIRONMENT",
}

// Deployment environments accepted by the environment key.
const (
	EnvironmentDevelopment = "development"
	EnvironmentStaging     = "staging"
	EnvironmentProduction  = "production"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress          string
	DatabaseURL          string
	JWTSecretKey         string
	JWTAlgorithm         string
	JWTExpirationMinutes int
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleTokenInfoURL   string
	AllowedOrigins       []string
	Environment          string
	LogLevel             string
}

// AccessTokenTTL converts the configured expiration into a duration.
func (c AppConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationMinutes) * time.Minute
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()
	for key, legacy := range legacyEnvNames {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = configViper.BindEnv(key, prefixed, legacy)
	}

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.url", defaultDatabaseURL)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("jwt.algorithm", defaultJWTAlgorithm)
	configViper.SetDefault("jwt.expiration_minutes", defaultJWTExpirationMinutes)
	configViper.SetDefault("google.tokeninfo_url", defaultGoogleTokenInfoURL)
	configViper.SetDefault("cors.allowed_origins", []string{defaultAllowedOrigin})
	configViper.SetDefault("environment", defaultEnvironment)
}

// LoadDotEnv populates the process environment from .env files that exist.
// Variables already present in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          strings.TrimSpace(configViper.GetString("http.address")),
		DatabaseURL:          strings.TrimSpace(configViper.GetString("database.url")),
		JWTSecretKey:         configViper.GetString("jwt.secret_key"),
		JWTAlgorithm:         strings.ToUpper(strings.TrimSpace(configViper.GetString("jwt.algorithm"))),
		JWTExpirationMinutes: configViper.GetInt("jwt.expiration_minutes"),
		GoogleClientID:       strings.TrimSpace(configViper.GetString("google.client_id")),
		GoogleClientSecret:   configViper.GetString("google.client_secret"),
		GoogleTokenInfoURL:   strings.TrimSpace(configViper.GetString("google.tokeninfo_url")),
		AllowedOrigins:       normalizeOrigins(configViper.GetStringSlice("cors.allowed_origins")),
		Environment:          strings.ToLower(strings.TrimSpace(configViper.GetString("environment"))),
		LogLevel:             configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("jwt.algorithm %q is not supported", c.JWTAlgorithm)
	}
	if c.JWTExpirationMinutes <= 0 || c.JWTExpirationMinutes > maxJWTExpirationMinutes {
		return fmt.Errorf("jwt.expiration_minutes must be between 1 and %d", maxJWTExpirationMinutes)
	}
	if c.GoogleClientID == "" {
		return fmt.Errorf("google.client_id is required")
	}
	if c.GoogleTokenInfoURL == "" {
		return fmt.Errorf("google.tokeninfo_url is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database.url is required")
	}
	switch c.Environment {
	case EnvironmentDevelopment, EnvironmentStaging, EnvironmentProduction:
	default:
		return fmt.Errorf("environment %q is not supported", c.Environment)
	}
	return nil
}

// viper returns comma separated env values as a single element.
func normalizeOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			origin := strings.TrimSpace(part)
			if origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}

package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nested keys: VENUECHAT_PROVIDER__CLIENT_ID sets provider.client_id.
const EnvPrefix = "VENUECHAT_"

// Config holds all application configuration.
type Config struct {
	// Environment
	Env string `koanf:"env" validate:"required"` // "development", "production", etc.

	// Server
	ServerAddr  string `koanf:"server_addr" validate:"required"`
	CORSOrigins string `koanf:"cors_origins"` // Comma-separated allowed origins

	// Storage
	DatabaseURL string `koanf:"database_url" validate:"required"`
	RedisURL    string `koanf:"redis_url"` // Rate limiter storage; in-memory when empty
	SeedDev     bool   `koanf:"seed_dev"`

	OIDC      OIDC      `koanf:"oidc"`
	Log       Log       `koanf:"log"`
	Provider  Provider  `koanf:"provider"`
	Cache     Cache     `koanf:"cache"`
	RateLimit RateLimit `koanf:"rate_limit"`
	Warmer    Warmer    `koanf:"warmer"`
}

// OIDC enables bearer token auth on the API when Issuer is set.
type OIDC struct {
	Issuer   string `koanf:"issuer" validate:"omitempty,url"`
	ClientID string `koanf:"client_id" validate:"required_with=Issuer"`
}

// Log configures the zap logger.
type Log struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	File       string `koanf:"file"` // Rotated JSON log file; console only when empty
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=1"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
}

// Provider configures the external venue directory client.
type Provider struct {
	BaseURL      string        `koanf:"base_url" validate:"required,url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret" validate:"required_with=ClientID"`
	OAuthToken   string        `koanf:"oauth_token"`
	APIVersion   string        `koanf:"api_version" validate:"required"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	Retries      int           `koanf:"retries" validate:"min=0,max=5"`
	ResultLimit  int           `koanf:"result_limit" validate:"min=1,max=50"`
}

// Cache tunes the proximity cache.
type Cache struct {
	MaxAge     time.Duration `koanf:"max_age" validate:"gt=0"`
	HitLimit   int           `koanf:"hit_limit" validate:"min=1,max=100"`
	RoomsLimit int           `koanf:"rooms_limit" validate:"min=1,max=100"`
}

// RateLimit bounds API requests per client IP. Max of zero disables it.
type RateLimit struct {
	Max    int           `koanf:"max" validate:"min=0"`
	Window time.Duration `koanf:"window" validate:"required_with=Max"`
}

// Warmer refreshes hot search keys in the background. A zero Interval
// disables it.
type Warmer struct {
	Interval time.Duration `koanf:"interval" validate:"min=0"`
	Hotspots []Hotspot     `koanf:"hotspots" validate:"dive"`
}

// Hotspot is a search kept warm by the warmer.
type Hotspot struct {
	Name   string  `koanf:"name"`
	Lat    float64 `koanf:"lat" validate:"min=-90,max=90"`
	Lng    float64 `koanf:"lng" validate:"min=-180,max=180"`
	Meters int     `koanf:"meters" validate:"min=1,max=100000"`
	Query  string  `koanf:"query"`
}

var validate = validator.New()

func defaults() Config {
	return Config{
		Env:         "development",
		ServerAddr:  ":3000",
		DatabaseURL: "postgres://localhost:5432/venuechat?sslmode=disable",
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Provider: Provider{
			BaseURL:     "https://api.foursquare.com/v2",
			APIVersion:  "20240101",
			Timeout:     5 * time.Second,
			Retries:     2,
			ResultLimit: 50,
		},
		Cache: Cache{
			MaxAge:     24 * time.Hour,
			HitLimit:   50,
			RoomsLimit: 100,
		},
		RateLimit: RateLimit{
			Max:    120,
			Window: time.Minute,
		},
	}
}

// Load builds the configuration from, lowest precedence first: built-in
// defaults, an optional .env file, an optional YAML file (CONFIG_FILE,
// default config.yaml), and VENUECHAT_ environment variables.
func Load() (*Config, error) {
	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	k := koanf.New(".")

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
		zap.S().Debugw("config yaml loaded", "file", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps VENUECHAT_PROVIDER__CLIENT_ID to provider.client_id.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// AllowedOrigins splits CORSOrigins into trimmed, non-empty origins.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

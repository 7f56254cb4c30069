// Package config loads service configuration from an optional TOML file and
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tsp-router/internal/apperr"
)

// DefaultDepotAddress is the depot every tour starts and ends at unless
// configured otherwise.
const DefaultDepotAddress = "4 N 2nd St Suite 150, San Jose, CA 95113"

// Provider names
const (
	ProviderGoogle    = "google"
	ProviderOSRM      = "osrm"
	ProviderHaversine = "haversine"
)

// Cache backends
const (
	CacheSQLite = "sqlite"
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Duration is a time.Duration that decodes from strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds service configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Depot    DepotConfig    `toml:"depot"`
	Provider ProviderConfig `toml:"provider"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type DepotConfig struct {
	Address string `toml:"address"`
}

type ProviderConfig struct {
	Name         string   `toml:"name"`
	GoogleAPIKey string   `toml:"google_api_key"`
	Timeout      Duration `toml:"timeout"`
	Retries      int      `toml:"retries"`
}

type CacheConfig struct {
	Backend   string   `toml:"backend"`
	Path      string   `toml:"path"` // empty = default under the app directory
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:5001",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Depot: DepotConfig{Address: DefaultDepotAddress},
		Provider: ProviderConfig{
			Name:    ProviderGoogle,
			Timeout: Duration{30 * time.Second},
			Retries: 3,
		},
		Cache: CacheConfig{
			Backend:   CacheSQLite,
			RedisAddr: "127.0.0.1:6379",
			TTL:       Duration{720 * time.Hour},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidInput, err, "failed to read config file %s", path)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setString("SERVER_ADDR", &c.Server.Addr)
	setString("DEPOT_ADDRESS", &c.Depot.Address)
	setString("DISTANCE_PROVIDER", &c.Provider.Name)
	setString("GOOGLE_MAPS_API_KEY", &c.Provider.GoogleAPIKey)
	setString("CACHE_BACKEND", &c.Cache.Backend)
	setString("CACHE_PATH", &c.Cache.Path)
	setString("REDIS_ADDR", &c.Cache.RedisAddr)
	setString("LOG_LEVEL", &c.Log.Level)

	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}

	if v := getenv("PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperr.Wrap(apperr.CodeInvalidInput, err, "invalid PROVIDER_TIMEOUT %q", v)
		}
		c.Provider.Timeout = Duration{d}
	}
	if v := getenv("PROVIDER_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperr.Wrap(apperr.CodeInvalidInput, err, "invalid PROVIDER_RETRIES %q", v)
		}
		c.Provider.Retries = n
	}
	if v := getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperr.Wrap(apperr.CodeInvalidInput, err, "invalid CACHE_TTL %q", v)
		}
		c.Cache.TTL = Duration{d}
	}
	return nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Depot.Address) == "" {
		return apperr.New(apperr.CodeInvalidInput, "depot address must not be empty")
	}

	switch c.Provider.Name {
	case ProviderGoogle:
		if c.Provider.GoogleAPIKey == "" {
			return apperr.New(apperr.CodeInvalidInput, "GOOGLE_MAPS_API_KEY is required for the google provider")
		}
	case ProviderOSRM, ProviderHaversine:
	default:
		return apperr.New(apperr.CodeInvalidInput, "unknown distance provider %q", c.Provider.Name)
	}

	switch c.Cache.Backend {
	case CacheSQLite, CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return apperr.New(apperr.CodeInvalidInput, "redis cache requires an address")
		}
	default:
		return apperr.New(apperr.CodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}

	if c.Provider.Timeout.Duration <= 0 {
		return apperr.New(apperr.CodeInvalidInput, "provider timeout must be positive")
	}
	if c.Provider.Retries < 1 {
		return apperr.New(apperr.CodeInvalidInput, "provider retries must be at least 1")
	}
	return nil
}

// String summarizes the configuration without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("addr=%s provider=%s cache=%s depot=%q", c.Server.Addr, c.Provider.Name, c.Cache.Backend, c.Depot.Address)
}

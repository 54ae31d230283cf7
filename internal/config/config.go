// Package config loads service configuration from built-in defaults, an
// optional YAML file and MARKETFINDER_* environment variables, in that order
// of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names. A double underscore
// separates sections: MARKETFINDER_OSRM__BASE_URL -> osrm.base_url
const EnvPrefix = "MARKETFINDER_"

// ConfigPathEnvVar overrides the config file search
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/market-finder/config.yaml",
}

// Config is the full service configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
	OSRM      OSRMConfig      `koanf:"osrm"`
	Optimizer OptimizerConfig `koanf:"optimizer"`
	Arbiter   ArbiterConfig   `koanf:"arbiter"`
	Geocoding GeocodingConfig `koanf:"geocoding"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// OSRMConfig configures the optional route-distance refinement
type OSRMConfig struct {
	Enabled        bool          `koanf:"enabled"`
	BaseURL        string        `koanf:"base_url"`
	Timeout        time.Duration `koanf:"timeout"`
	RateLimit      float64       `koanf:"rate_limit"`
	Burst          int           `koanf:"burst"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	Concurrency    int           `koanf:"concurrency"`
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

type OptimizerConfig struct {
	PopulationSize  int     `koanf:"population_size"`
	Generations     int     `koanf:"generations"`
	CrossoverProb   float64 `koanf:"crossover_prob"`
	MutationProb    float64 `koanf:"mutation_prob"`
	TournamentSize  int     `koanf:"tournament_size"`
	EliteSize       int     `koanf:"elite_size"`
	StagnationLimit int     `koanf:"stagnation_limit"`
	Epsilon         float64 `koanf:"epsilon"`
	Workers         int     `koanf:"workers"`
	Runs            int     `koanf:"runs"`
}

type ArbiterConfig struct {
	SmallThreshold  int           `koanf:"small_threshold"`
	ClusterRadiusKm float64       `koanf:"cluster_radius_km"`
	MaxResults      int           `koanf:"max_results"`
	Timeout         time.Duration `koanf:"timeout"`
}

// GeocodingConfig configures address lookup for the CLI
type GeocodingConfig struct {
	BaseURL      string        `koanf:"base_url"`
	CountryCodes string        `koanf:"country_codes"`
	Timeout      time.Duration `koanf:"timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/markets.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		OSRM: OSRMConfig{
			Enabled:        false,
			BaseURL:        "https://router.project-osrm.org",
			Timeout:        3 * time.Second,
			RateLimit:      10,
			Burst:          10,
			CacheTTL:       time.Hour,
			Concurrency:    4,
			BreakerTimeout: 30 * time.Second,
		},
		Optimizer: OptimizerConfig{
			PopulationSize:  60,
			Generations:     50,
			CrossoverProb:   0.7,
			MutationProb:    0.2,
			TournamentSize:  3,
			EliteSize:       5,
			StagnationLimit: 10,
			Epsilon:         0.001,
			Workers:         0,
			Runs:            1,
		},
		Arbiter: ArbiterConfig{
			SmallThreshold:  20,
			ClusterRadiusKm: 10,
			MaxResults:      50,
			Timeout:         5 * time.Second,
		},
		Geocoding: GeocodingConfig{
			BaseURL:      "https://nominatim.openstreetmap.org",
			CountryCodes: "id",
			Timeout:      10 * time.Second,
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

// Load reads .env (if present), then layers defaults, config file and env vars
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
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

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps MARKETFINDER_OSRM__BASE_URL to osrm.base_url
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}

// Package config loads the service configuration from defaults, an optional
// YAML file and MATCHLENS_* environment variables.
// Fail-fast: a missing football-data.org API key is an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIKeyEnv is the conventional variable holding the football-data.org token.
const APIKeyEnv = "FOOTBALL_DATA_API_KEY"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	FootballData FootballDataConfig `mapstructure:"footballdata"`
	Ingest       IngestConfig       `mapstructure:"ingest"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	// Migrate applies pending migrations on serve.
	Migrate bool `mapstructure:"migrate"`
}

type RedisConfig struct {
	// URL is optional; without it ingest events are not published.
	URL string `mapstructure:"url"`
}

type FootballDataConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	UserAgent         string        `mapstructure:"user_agent"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`

	// APIKeySource tells where APIKey came from: "config" or "env:FOOTBALL_DATA_API_KEY".
	APIKeySource string `mapstructure:"-"`
}

type IngestConfig struct {
	// FreshnessWindow of zero means one calendar month.
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	Schedule        string        `mapstructure:"schedule"`
	Competitions    []string      `mapstructure:"competitions"`
	Concurrency     int           `mapstructure:"concurrency"`
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `mapstructure:"driver"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.url", "")
	v.SetDefault("footballdata.base_url", "https://api.football-data.org")
	v.SetDefault("footballdata.api_key", "")
	v.SetDefault("footballdata.user_agent", "matchlens-ingest/1.0")
	v.SetDefault("footballdata.connect_timeout", "5s")
	v.SetDefault("footballdata.read_timeout", "10s")
	v.SetDefault("footballdata.request_timeout", "30s")
	v.SetDefault("footballdata.requests_per_minute", 10)
	v.SetDefault("footballdata.max_attempts", 3)
	v.SetDefault("footballdata.initial_backoff", "1s")
	v.SetDefault("footballdata.max_backoff", "8s")
	v.SetDefault("ingest.freshness_window", "0s")
	v.SetDefault("ingest.schedule", "@every 6h")
	v.SetDefault("ingest.competitions", []string{})
	v.SetDefault("ingest.concurrency", 2)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/matchlens")
	}

	v.SetEnvPrefix("MATCHLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.FootballData.APIKeySource = "config"
	if cfg.FootballData.APIKey == "" {
		cfg.FootballData.APIKey = os.Getenv(APIKeyEnv)
		cfg.FootballData.APIKeySource = "env:" + APIKeyEnv
	}

	cfg.Ingest.Competitions = normalizeCodes(cfg.Ingest.Competitions)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.FootballData.APIKey == "" {
		return fmt.Errorf("football-data.org API key is required (set %s or footballdata.api_key)", APIKeyEnv)
	}
	if c.FootballData.ConnectTimeout <= 0 || c.FootballData.ReadTimeout <= 0 {
		return fmt.Errorf("footballdata.connect_timeout and footballdata.read_timeout must be positive")
	}
	if c.FootballData.MaxAttempts < 1 {
		return fmt.Errorf("footballdata.max_attempts must be at least 1")
	}
	if c.FootballData.RequestsPerMinute < 0 {
		return fmt.Errorf("footballdata.requests_per_minute must not be negative")
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres storage driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q (want postgres or memory)", c.Storage.Driver)
	}
	return nil
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

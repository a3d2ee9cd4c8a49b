package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration parameters
type Config struct {
	Port        string         `yaml:"port"`
	ModelPath   string         `yaml:"model_path"`
	LogLevel    string         `yaml:"log_level"`
	Fetch       FetchConfig    `yaml:"fetch"`
	Registry    RegistryConfig `yaml:"registry"`
	API         APIConfig      `yaml:"api"`
	HistoryDB   string         `yaml:"history_db"`   // empty disables history
	MetricsPath string         `yaml:"metrics_path"` // written on shutdown when set
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Mode         string        `yaml:"mode"` // "http", "render" or "off"
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int           `yaml:"max_body_bytes"`
	ChromePath   string        `yaml:"chrome_path"`
}

// RegistryConfig controls WHOIS lookups.
type RegistryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// APIConfig controls the HTTP surface.
type APIConfig struct {
	RateLimit        float64 `yaml:"rate_limit"` // requests per second; negative disables limiting
	RateBurst        int     `yaml:"rate_burst"`
	BatchLimit       int     `yaml:"batch_limit"`
	BatchConcurrency int     `yaml:"batch_concurrency"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{Registry: RegistryConfig{Enabled: true}}
	applyDefaults(cfg)
	return cfg
}

// Load builds the configuration from, in increasing priority, defaults, the
// YAML file at path (optional), a .env file and the process environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("PHISHGUARD_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = "model.json.gz"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Fetch.Mode == "" {
		cfg.Fetch.Mode = "http"
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 6 * time.Second
	}
	if cfg.Fetch.MaxBodyBytes == 0 {
		cfg.Fetch.MaxBodyBytes = 2 << 20
	}
	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = 10 * time.Second
	}
	if cfg.API.RateLimit == 0 {
		cfg.API.RateLimit = 5
	}
	if cfg.API.RateBurst == 0 {
		cfg.API.RateBurst = 10
	}
	if cfg.API.BatchLimit == 0 {
		cfg.API.BatchLimit = 20
	}
	if cfg.API.BatchConcurrency == 0 {
		cfg.API.BatchConcurrency = 4
	}
}

// applyEnv overrides fields from environment variables that are set.
func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("MODEL_PATH", &cfg.ModelPath)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("FETCH_MODE", &cfg.Fetch.Mode)
	str("USER_AGENT", &cfg.Fetch.UserAgent)
	str("CHROME_PATH", &cfg.Fetch.ChromePath)
	str("HISTORY_DB", &cfg.HistoryDB)
	str("METRICS_PATH", &cfg.MetricsPath)

	durations := map[string]*time.Duration{
		"FETCH_TIMEOUT":    &cfg.Fetch.Timeout,
		"REGISTRY_TIMEOUT": &cfg.Registry.Timeout,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	ints := map[string]*int{
		"MAX_BODY_BYTES":    &cfg.Fetch.MaxBodyBytes,
		"RATE_BURST":        &cfg.API.RateBurst,
		"BATCH_LIMIT":       &cfg.API.BatchLimit,
		"BATCH_CONCURRENCY": &cfg.API.BatchConcurrency,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		cfg.API.RateLimit = f
	}
	if v := os.Getenv("REGISTRY_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("REGISTRY_ENABLED: %w", err)
		}
		cfg.Registry.Enabled = b
	}
	return nil
}

// validate checks that values are sensible
func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Fetch.Mode) {
	case "http", "render", "off":
		cfg.Fetch.Mode = strings.ToLower(cfg.Fetch.Mode)
	default:
		return fmt.Errorf("fetch.mode must be http, render or off, got %q", cfg.Fetch.Mode)
	}
	if cfg.Fetch.Timeout < 0 || cfg.Registry.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if cfg.Fetch.MaxBodyBytes < 0 {
		return fmt.Errorf("fetch.max_body_bytes must not be negative")
	}
	if cfg.API.RateBurst < 1 {
		return fmt.Errorf("api.rate_burst must be >= 1")
	}
	if cfg.API.BatchLimit < 1 || cfg.API.BatchConcurrency < 1 {
		return fmt.Errorf("api.batch_limit and api.batch_concurrency must be >= 1")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("port must be numeric, got %q", cfg.Port)
	}
	return nil
}

// Package config loads the service configuration from a JSON file, a .env
// file and DIETPLAN_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/restriction"
)

// Environment variables read by Load.
const (
	EnvConfig              = "DIETPLAN_CONFIG"
	EnvDBPath              = "DIETPLAN_DB_PATH"
	EnvListenAddr          = "DIETPLAN_LISTEN_ADDR"
	EnvLogLevel            = "DIETPLAN_LOG_LEVEL"
	EnvSeed                = "DIETPLAN_SEED"
	EnvCatalogPath         = "DIETPLAN_CATALOG_PATH"
	EnvRestrictionFallback = "DIETPLAN_RESTRICTION_FALLBACK"
)

// Config holds the service's runtime configuration.
type Config struct {
	DBPath              string   `json:"db_path"`
	ListenAddr          string   `json:"listen_addr"`
	LogLevel            string   `json:"log_level"`
	CatalogPath         string   `json:"catalog_path"`
	Seed                uint64   `json:"seed"`
	RestrictionFallback string   `json:"restriction_fallback"`
	AllowedOrigins      []string `json:"allowed_origins"`
	RateLimitPerMinute  int      `json:"rate_limit_per_minute"`
}

// Load reads a JSON config file, applies environment overrides and
// defaults, and validates. An empty path skips the file and configures
// from the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config JSON: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding the ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ResolvePath picks the config file: the explicit flag value, then
// DIETPLAN_CONFIG, then config.json next to the executable or in the cwd.
// It returns "" when none exists.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "config.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}
	return ""
}

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*string{
		EnvDBPath:              &c.DBPath,
		EnvListenAddr:          &c.ListenAddr,
		EnvLogLevel:            &c.LogLevel,
		EnvCatalogPath:         &c.CatalogPath,
		EnvRestrictionFallback: &c.RestrictionFallback,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return domain.WrapEngineError(domain.ErrConfigInvalid.Code, EnvSeed+" must be an unsigned integer", err)
		}
		c.Seed = seed
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RestrictionFallback == "" {
		c.RestrictionFallback = string(restriction.FallbackUnfiltered)
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.DBPath == "" {
		problems = append(problems, "db_path is required")
	}
	if c.RateLimitPerMinute < 0 {
		problems = append(problems, "rate_limit_per_minute must not be negative")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}
	if _, err := restriction.ParsePolicy(c.RestrictionFallback); err != nil {
		problems = append(problems, fmt.Sprintf("unknown restriction_fallback %q", c.RestrictionFallback))
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}

// Policy returns the parsed restriction fallback policy.
func (c *Config) Policy() restriction.FallbackPolicy {
	p, _ := restriction.ParsePolicy(c.RestrictionFallback)
	return p
}

// ABOUTME: Configuration loading and parsing for railsdevs-conversations
// ABOUTME: Supports YAML or TOML files, ${VAR} expansion, RAILSDEVS_* overrides and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RAILSDEVS_DATABASE_PATH.
const EnvPrefix = "railsdevs"

// Defaults applied when a value is absent from both the file and the environment
const (
	DefaultHiringFeeGracePeriod = "336h"
	DefaultDedupeTTL            = "24h"
	DefaultDedupeSize           = 10000
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultHTTPAddr             = "localhost:8080"
)

// Config represents the complete railsdevs-conversations configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	HiringFee HiringFeeConfig `yaml:"hiring_fee" toml:"hiring_fee"`
	Inbound   InboundConfig   `yaml:"inbound" toml:"inbound"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// HiringFeeConfig holds the hiring fee rules
type HiringFeeConfig struct {
	// GracePeriod is how old a conversation must be before a hiring fee applies
	GracePeriod time.Duration `yaml:"-" toml:"-"`

	GracePeriodRaw string `yaml:"grace_period" toml:"grace_period"`
}

// InboundConfig holds inbound email routing configuration
type InboundConfig struct {
	// Domain is the host part of conversation reply addresses. Empty disables routing.
	Domain     string        `yaml:"domain" toml:"domain"`
	DedupeTTL  time.Duration `yaml:"-" toml:"-"`
	DedupeSize int           `yaml:"dedupe_size" toml:"dedupe_size"`

	DedupeTTLRaw string `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// envOverrides are read from RAILSDEVS_* variables, with field names split
// into words: HiringFeeGracePeriod is RAILSDEVS_HIRING_FEE_GRACE_PERIOD.
// Zero values leave the file's setting alone.
type envOverrides struct {
	HTTPAddr             string `split_words:"true"`
	DatabasePath         string `split_words:"true"`
	HiringFeeGracePeriod string `split_words:"true"`
	InboundDomain        string `split_words:"true"`
	InboundDedupeTTL     string `split_words:"true"`
	InboundDedupeSize    int    `split_words:"true"`
	LogLevel             string `split_words:"true"`
	LogFormat            string `split_words:"true"`
}

// DefaultPath returns the config file location: $RAILSDEVS_CONFIG if set,
// otherwise conversations.yaml under the XDG config directory.
func DefaultPath() string {
	if p := os.Getenv("RAILSDEVS_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "conversations.yaml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "railsdevs", "conversations.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then
// RAILSDEVS_* overrides and defaults are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}
	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Server.HTTPAddr, env.HTTPAddr)
	override(&cfg.Database.Path, env.DatabasePath)
	override(&cfg.HiringFee.GracePeriodRaw, env.HiringFeeGracePeriod)
	override(&cfg.Inbound.Domain, env.InboundDomain)
	override(&cfg.Inbound.DedupeTTLRaw, env.InboundDedupeTTL)
	override(&cfg.Logging.Level, env.LogLevel)
	override(&cfg.Logging.Format, env.LogFormat)
	if env.InboundDedupeSize != 0 {
		cfg.Inbound.DedupeSize = env.InboundDedupeSize
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.HiringFee.GracePeriodRaw == "" {
		cfg.HiringFee.GracePeriodRaw = DefaultHiringFeeGracePeriod
	}
	if cfg.Inbound.DedupeTTLRaw == "" {
		cfg.Inbound.DedupeTTLRaw = DefaultDedupeTTL
	}
	if cfg.Inbound.DedupeSize == 0 {
		cfg.Inbound.DedupeSize = DefaultDedupeSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.HiringFee.GracePeriod <= 0 {
		return fmt.Errorf("hiring_fee.grace_period must be positive")
	}

	if c.Inbound.DedupeTTL <= 0 {
		return fmt.Errorf("inbound.dedupe_ttl must be positive")
	}
	if c.Inbound.DedupeSize < 1 {
		return fmt.Errorf("inbound.dedupe_size must be at least 1")
	}
	if strings.ContainsAny(c.Inbound.Domain, "@ ") {
		return fmt.Errorf("inbound.domain must be a bare domain, got %q", c.Inbound.Domain)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.HiringFee.GracePeriodRaw != "" {
		cfg.HiringFee.GracePeriod, err = time.ParseDuration(cfg.HiringFee.GracePeriodRaw)
		if err != nil {
			return fmt.Errorf("parsing grace_period %q: %w", cfg.HiringFee.GracePeriodRaw, err)
		}
	}

	if cfg.Inbound.DedupeTTLRaw != "" {
		cfg.Inbound.DedupeTTL, err = time.ParseDuration(cfg.Inbound.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe_ttl %q: %w", cfg.Inbound.DedupeTTLRaw, err)
		}
	}

	return nil
}

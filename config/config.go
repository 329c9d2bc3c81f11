// Package config loads the tokenindex-mcp settings.
//
// Sources are applied in order, each overriding the previous one:
//   - built-in defaults
//   - an optional TOML file
//   - TOKENINDEX_* environment variables (a .env file is loaded first if present)
//
// Command line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/lexandro/tokenindex-mcp/ignore"
	"github.com/lexandro/tokenindex-mcp/index"
	"github.com/lexandro/tokenindex-mcp/indexer"
	"github.com/lexandro/tokenindex-mcp/tokenizer"
	"github.com/lexandro/tokenindex-mcp/tools"
	"github.com/lexandro/tokenindex-mcp/watcher"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "TOKENINDEX_"

const (
	TokenizerRegex   = "regex"
	TokenizerUnicode = "unicode"
)

// Config is the full configuration of the binary.
type Config struct {
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`

	IgnoredNames     []string `toml:"ignored_names"`
	SeparatorPattern string   `toml:"separator_pattern"`
	Tokenizer        string   `toml:"tokenizer"`
	IgnoreFile       string   `toml:"ignore_file"`

	Workers         int           `toml:"workers"`
	QueueSize       int           `toml:"queue_size"`
	ReadLockTimeout time.Duration `toml:"read_lock_timeout"`
	Debounce        time.Duration `toml:"debounce"`
	CacheSize       int           `toml:"cache_size"`

	IndexWaitTimeout time.Duration `toml:"index_wait_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		IgnoredNames:    append([]string(nil), ignore.DefaultNames...),
		Tokenizer:       TokenizerRegex,
		QueueSize:       index.DefaultQueueSize,
		ReadLockTimeout: index.DefaultReadLockTimeout,
		Debounce:        watcher.DefaultDebounce,
		CacheSize:       index.DefaultCacheSize,

		IndexWaitTimeout: tools.DefaultIndexWaitTimeout,
	}
}

// Load builds the configuration from defaults, the TOML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from a .env file. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from TOKENINDEX_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		value, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(value), ok && strings.TrimSpace(value) != ""
	}

	if value, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = value
	}
	if value, ok := get("LOG_FILE"); ok {
		c.LogFile = value
	}
	if value, ok := get("IGNORED_NAMES"); ok {
		c.IgnoredNames = SplitList(value)
	}
	if value, ok := get("SEPARATOR_PATTERN"); ok {
		c.SeparatorPattern = value
	}
	if value, ok := get("TOKENIZER"); ok {
		c.Tokenizer = value
	}
	if value, ok := get("IGNORE_FILE"); ok {
		c.IgnoreFile = value
	}

	ints := []struct {
		name   string
		target *int
	}{
		{"WORKERS", &c.Workers},
		{"QUEUE_SIZE", &c.QueueSize},
		{"CACHE_SIZE", &c.CacheSize},
	}
	for _, field := range ints {
		value, ok := get(field.name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parsing %s%s: %w", EnvPrefix, field.name, err)
		}
		*field.target = parsed
	}

	durations := []struct {
		name   string
		target *time.Duration
	}{
		{"READ_LOCK_TIMEOUT", &c.ReadLockTimeout},
		{"DEBOUNCE", &c.Debounce},
		{"INDEX_WAIT_TIMEOUT", &c.IndexWaitTimeout},
	}
	for _, field := range durations {
		value, ok := get(field.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parsing %s%s: %w", EnvPrefix, field.name, err)
		}
		*field.target = parsed
	}
	return nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	switch c.Tokenizer {
	case TokenizerRegex, TokenizerUnicode:
	default:
		return fmt.Errorf("invalid tokenizer %q, must be one of: %s, %s", c.Tokenizer, TokenizerRegex, TokenizerUnicode)
	}
	if c.Tokenizer == TokenizerUnicode && c.SeparatorPattern != "" {
		return fmt.Errorf("separator pattern only applies to the %s tokenizer", TokenizerRegex)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue size must not be negative, got %d", c.QueueSize)
	}
	if c.ReadLockTimeout < 0 {
		return fmt.Errorf("read lock timeout must not be negative, got %s", c.ReadLockTimeout)
	}
	if c.IndexWaitTimeout < 0 {
		return fmt.Errorf("index wait timeout must not be negative, got %s", c.IndexWaitTimeout)
	}
	return nil
}

// IndexerConfig converts the configuration into indexer settings.
func (c *Config) IndexerConfig(logger *slog.Logger) indexer.Config {
	cfg := indexer.Config{
		IgnoredNames:     c.IgnoredNames,
		SeparatorPattern: c.SeparatorPattern,
		IgnoreFile:       c.IgnoreFile,
		Workers:          c.Workers,
		QueueSize:        c.QueueSize,
		ReadLockTimeout:  c.ReadLockTimeout,
		Debounce:         c.Debounce,
		CacheSize:        c.CacheSize,
		Logger:           logger,
	}
	if c.Tokenizer == TokenizerUnicode {
		cfg.Tokenizer = tokenizer.NewUnicode()
	}
	return cfg
}

// SplitList splits a comma separated list, dropping blank items.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

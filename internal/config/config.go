package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sderrors "github.com/Aman-CERP/segdex/internal/errors"
)

// ProjectFileName is the per-directory configuration file.
const ProjectFileName = ".segdex.yaml"

// Config is the complete segdex configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Index   IndexConfig  `yaml:"index" json:"index"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Server  ServerConfig `yaml:"server" json:"server"`
	Ingest  IngestConfig `yaml:"ingest" json:"ingest"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
}

// IndexConfig locates the index and sizes its write buffer.
type IndexConfig struct {
	// Path is the index directory, relative to the working directory.
	Path string `yaml:"path" json:"path"`
	// WriteBufferMB is the batch budget in megabytes before an automatic commit.
	WriteBufferMB int `yaml:"write_buffer_mb" json:"write_buffer_mb"`
}

// SearchConfig configures query execution.
type SearchConfig struct {
	// MaxResults caps results per query. Range 1-50.
	MaxResults int `yaml:"max_results" json:"max_results"`
	// QueryCacheSize is the number of parsed queries kept. 0 disables the cache.
	QueryCacheSize int `yaml:"query_cache_size" json:"query_cache_size"`
}

// ServerConfig configures `segdex serve`.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Addr      string `yaml:"addr" json:"addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// IngestConfig configures bulk loading.
type IngestConfig struct {
	Workers   int `yaml:"workers" json:"workers"`
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// WatchConfig configures `segdex watch`.
type WatchConfig struct {
	Debounce   string   `yaml:"debounce" json:"debounce"`
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:          "search_index",
			WriteBufferMB: 50,
		},
		Search: SearchConfig{
			MaxResults:     50,
			QueryCacheSize: 256,
		},
		Server: ServerConfig{
			Transport: "http",
			Addr:      "127.0.0.1:8080",
			LogLevel:  "info",
		},
		Ingest: IngestConfig{
			Workers:   runtime.NumCPU(),
			BatchSize: 1000,
		},
		Watch: WatchConfig{
			Debounce:   "200ms",
			Extensions: []string{".json", ".jsonl"},
		},
	}
}

// GetUserConfigPath returns the user configuration file:
// $XDG_CONFIG_HOME/segdex/config.yaml, or ~/.config/segdex/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "segdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "segdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "segdex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for dir. Precedence, lowest first:
//  1. defaults
//  2. user config
//  3. .segdex.yaml in dir
//  4. SEGDEX_* environment variables
func Load(dir string) (*Config, error) {
	return load(func(c *Config) error { return c.loadFromDir(dir) })
}

// LoadFile is Load with an explicit file in place of the project file.
func LoadFile(path string) (*Config, error) {
	if !fileExists(path) {
		return nil, sderrors.New(sderrors.ErrCodeConfigNotFound, "config file not found", nil).
			WithDetail("path", path)
	}
	return load(func(c *Config) error { return c.loadYAML(path) })
}

// LoadUserConfig returns the defaults overlaid with the user config file
// only, without project files or environment. Returns nil, nil when the
// user file does not exist.
func LoadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(project func(*Config) error) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	if err := project(cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{ProjectFileName, ".segdex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML merges the non-zero values of the file at path into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return sderrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return sderrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}

	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.WriteBufferMB != 0 {
		c.Index.WriteBufferMB = other.Index.WriteBufferMB
	}

	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.QueryCacheSize != 0 {
		c.Search.QueryCacheSize = other.Search.QueryCacheSize
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}
	if other.Ingest.BatchSize != 0 {
		c.Ingest.BatchSize = other.Ingest.BatchSize
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}
}

// applyEnvOverrides applies SEGDEX_* variables. Unparseable numbers are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEGDEX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("SEGDEX_WRITE_BUFFER_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Index.WriteBufferMB = n
		}
	}
	if v := os.Getenv("SEGDEX_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("SEGDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SEGDEX_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SEGDEX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return sderrors.ConfigError(fmt.Sprintf(format, args...), nil).WithDetail("field", field)
	}

	if c.Index.Path == "" {
		return invalid("index.path", "index.path must not be empty")
	}
	if c.Index.WriteBufferMB <= 0 {
		return invalid("index.write_buffer_mb", "index.write_buffer_mb must be positive, got %d", c.Index.WriteBufferMB)
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 50 {
		return invalid("search.max_results", "search.max_results must be between 1 and 50, got %d", c.Search.MaxResults)
	}
	if c.Search.QueryCacheSize < 0 {
		return invalid("search.query_cache_size", "search.query_cache_size must be non-negative, got %d", c.Search.QueryCacheSize)
	}

	switch strings.ToLower(c.Server.Transport) {
	case "http":
		if c.Server.Addr == "" {
			return invalid("server.addr", "server.addr is required for the http transport")
		}
	case "stdio":
	default:
		return invalid("server.transport", "server.transport must be 'http' or 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return invalid("server.log_level", "server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	if c.Ingest.Workers < 1 {
		return invalid("ingest.workers", "ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	if c.Ingest.BatchSize < 1 {
		return invalid("ingest.batch_size", "ingest.batch_size must be at least 1, got %d", c.Ingest.BatchSize)
	}
	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d < 0 {
		return invalid("watch.debounce", "watch.debounce must be a non-negative duration, got %q", c.Watch.Debounce)
	}

	return nil
}

// WriteBufferBytes returns the write buffer budget in bytes.
func (c *Config) WriteBufferBytes() int {
	return c.Index.WriteBufferMB * 1024 * 1024
}

// DebounceDuration returns the parsed watch debounce. Validate guarantees it parses.
func (c *Config) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Debounce)
	return d
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

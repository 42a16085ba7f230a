package internal

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config holds application configuration: engine defaults, logging, and
// the optional HTTP proxy.
type Config struct {
	TimeoutSecs       int    `toml:"timeout_secs"`
	MaxRetries        int    `toml:"max_retries"`
	NumThreads        int    `toml:"num_threads"`
	DefaultOutputPath string `toml:"default_output_path"`
	MetaDir           string `toml:"meta_dir"`
	ProxyURL          string `toml:"proxy_url"`

	// Logging configuration
	LogLevel    string `toml:"log_level"`
	EnableDebug bool   `toml:"enable_debug"`
	QuietMode   bool   `toml:"quiet_mode"`
	LogFile     string `toml:"log_file"`
}

// DefaultConfig returns the built-in defaults, matching the original
// prototype's Config::default.
func DefaultConfig() *Config {
	return &Config{
		TimeoutSecs:       15,
		MaxRetries:        3,
		NumThreads:        4,
		DefaultOutputPath: "",
		MetaDir:           "downloads/meta",

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "",
	}
}

// LoadFromFile reads a TOML config file and merges it over the built-in
// defaults. A missing or unparsable file falls back to defaults with a
// warning, mirroring Config::load_from_file's unwrap_or_else.
func LoadFromFile(path string) *Config {
	cfg := DefaultConfig()

	contents, err := os.ReadFile(path)
	if err != nil {
		LogWarn(fmt.Sprintf("config file not found at %s — using defaults", path))
		return cfg
	}

	if err := toml.Unmarshal(contents, cfg); err != nil {
		LogWarn(fmt.Sprintf("failed to parse %s: %v — using defaults", path, err))
		return DefaultConfig()
	}

	return cfg
}

// LoadFromEnv overrides configuration fields from DLMGR_* environment
// variables. Env vars take precedence over file values.
func (c *Config) LoadFromEnv() {
	if threads := os.Getenv("DLMGR_THREADS"); threads != "" {
		if t, err := strconv.Atoi(threads); err == nil && t > 0 && t <= 32 {
			c.NumThreads = t
		}
	}

	if timeout := os.Getenv("DLMGR_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			c.TimeoutSecs = t
		}
	}

	if retries := os.Getenv("DLMGR_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil && r >= 0 {
			c.MaxRetries = r
		}
	}

	if out := os.Getenv("DLMGR_OUTPUT_PATH"); out != "" {
		c.DefaultOutputPath = out
	}

	if metaDir := os.Getenv("DLMGR_META_DIR"); metaDir != "" {
		c.MetaDir = metaDir
	}

	if proxy := os.Getenv("DLMGR_PROXY"); proxy != "" {
		c.ProxyURL = proxy
	}

	if logLevel := os.Getenv("DLMGR_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if debug := os.Getenv("DLMGR_DEBUG"); debug != "" {
		c.EnableDebug = debug == "true" || debug == "1"
	}

	if quiet := os.Getenv("DLMGR_QUIET"); quiet != "" {
		c.QuietMode = quiet == "true" || quiet == "1"
	}

	if logFile := os.Getenv("DLMGR_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
}

// GetEnvWithDefault returns an environment variable value or a default.
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ValidateConfig checks that configuration values are within bounds.
func (c *Config) ValidateConfig() error {
	if c.NumThreads < 1 || c.NumThreads > 32 {
		return fmt.Errorf("invalid num_threads: %d (must be 1-32)", c.NumThreads)
	}

	if c.TimeoutSecs < 1 {
		return fmt.Errorf("invalid timeout_secs: %d (must be > 0)", c.TimeoutSecs)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d (must be >= 0)", c.MaxRetries)
	}

	if c.MetaDir == "" {
		return fmt.Errorf("meta_dir cannot be empty")
	}

	return nil
}

// DownloadConfigFromConfig projects the subset of Config that the engine
// needs into a DownloadConfig for a single task.
func (c *Config) DownloadConfigFromConfig() DownloadConfig {
	return DownloadConfig{
		TimeoutSecs:       c.TimeoutSecs,
		MaxRetries:        uint(c.MaxRetries),
		NumThreads:        c.NumThreads,
		DefaultOutputPath: c.DefaultOutputPath,
		MetaDir:           c.MetaDir,
		ProxyURL:          c.ProxyURL,
	}
}

// Package config loads the application-level configuration described in
// SPEC_FULL §A.3: log ring-buffer capacity, logs directory, the
// recent/scripts directory, and the default probe timeout. The
// load/cache/fallback-path control flow follows the teacher's
// config/config.go, but the repair pass is no longer a generic
// "zero means unset" rule: DefaultTimeoutMs is validated against what
// a network probe can actually use, since that field (unlike the
// teacher's purely path-shaped fields) feeds straight into
// transport.Target deadlines.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/CaptianFluffy100/net-sentinel/internal/transport"
)

// minTimeoutMs is the floor below which a configured default timeout
// would race every probe's own connect/read deadline before a TCP
// handshake can realistically complete.
const minTimeoutMs = 50

// Config is the persisted application configuration, loaded once at
// startup and shared by the scheduler, TUI, and CLI.
type Config struct {
	LogLines         int    `json:"log_lines"`
	LogsDir          string `json:"logs_dir"`
	ScriptsDir       string `json:"scripts_dir"`
	DefaultTimeoutMs int    `json:"default_timeout_ms"`
}

var (
	defaultConfig *Config
	once          sync.Once
)

// Default returns the baseline configuration used when no config file
// is found and when a loaded file omits a field.
func Default() *Config {
	return &Config{
		LogLines:         1000,
		LogsDir:          "logs",
		ScriptsDir:       "scripts",
		DefaultTimeoutMs: int(transport.DefaultTimeout / time.Millisecond),
	}
}

// DefaultTimeout returns the configured default timeout as a
// time.Duration, for direct use by transport.Target construction.
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// repair fills in zero-valued fields with their defaults and resets
// DefaultTimeoutMs to the transport default whenever a loaded file sets
// it below minTimeoutMs, rather than only treating zero as "unset".
func (c *Config) repair() {
	if c.LogLines <= 0 {
		c.LogLines = 1000
	}
	if c.LogsDir == "" {
		c.LogsDir = "logs"
	}
	if c.ScriptsDir == "" {
		c.ScriptsDir = "scripts"
	}
	if c.DefaultTimeoutMs < minTimeoutMs {
		c.DefaultTimeoutMs = int(transport.DefaultTimeout / time.Millisecond)
	}
}

// Load reads path, falling back to a short list of conventional
// locations when path is empty, and finally to Default() when none
// exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		defaultPaths := []string{
			"netsentinel.json",
			".netsentinel.json",
			filepath.Join(os.Getenv("HOME"), ".config", "netsentinel", "config.json"),
		}

		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}

		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.repair()
	return cfg, nil
}

// LoadDefault loads the config exactly once per process and caches it,
// for callers that don't care which file (if any) was used.
func LoadDefault() (*Config, error) {
	var err error
	once.Do(func() {
		defaultConfig, err = Load("")
	})
	if err != nil {
		return Default(), err
	}
	return defaultConfig, nil
}

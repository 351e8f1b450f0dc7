// Package config loads the optional YAML configuration file. Command line
// flags override whatever is loaded here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Polling interval bounds in seconds.
const (
	MinInterval     = 1
	MaxInterval     = 300
	DefaultInterval = 1
)

// Config holds all application configuration.
type Config struct {
	Interval  int           `yaml:"interval"` // seconds between polls
	Theme     string        `yaml:"theme"`
	Bookmarks string        `yaml:"bookmarks,omitempty"`
	MinAge    string        `yaml:"min_age,omitempty"`
	Results   ResultsConfig `yaml:"results"`
	Audit     AuditConfig   `yaml:"audit"`
	DebugLog  string        `yaml:"debug_log,omitempty"`
	Editor    string        `yaml:"editor,omitempty"`
	Pager     string        `yaml:"pager,omitempty"`
}

// ResultsConfig holds statistics grid display settings.
type ResultsConfig struct {
	MaxColumnWidth int `yaml:"max_column_width"`
}

// AuditConfig controls the operator action log.
type AuditConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Interval: DefaultInterval,
		Theme:    "default",
		Results: ResultsConfig{
			MaxColumnWidth: 50,
		},
		Audit: AuditConfig{
			Enabled:   true,
			MaxSizeMB: 10,
		},
	}
}

// ConfigDir returns the pgtop configuration directory, typically
// ~/.config/pgtop/.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(base, "pgtop"), nil
}

// Load reads a Config from the YAML file at path. If the file does not exist,
// it returns DefaultConfig without error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// DefaultPath returns ConfigDir()/config.yaml.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadDefault loads configuration from DefaultPath.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes the Config to the YAML file at path, creating any necessary
// parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Normalize clamps out of range values.
func (c *Config) Normalize() {
	c.Interval = ClampInterval(c.Interval)
	if c.Results.MaxColumnWidth < 0 {
		c.Results.MaxColumnWidth = 0
	}
	if c.Audit.MaxSizeMB < 0 {
		c.Audit.MaxSizeMB = 0
	}
}

// ClampInterval forces seconds into [MinInterval, MaxInterval].
func ClampInterval(seconds int) int {
	switch {
	case seconds < MinInterval:
		return MinInterval
	case seconds > MaxInterval:
		return MaxInterval
	}
	return seconds
}

// PollInterval returns the polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(ClampInterval(c.Interval)) * time.Second
}

// AuditPath returns the audit log location, defaulting to
// ConfigDir()/audit.jsonl.
func (c *Config) AuditPath() (string, error) {
	if c.Audit.Path != "" {
		return expandHome(c.Audit.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.jsonl"), nil
}

// DebugLogPath returns the debug log location. An empty configured path
// selects ConfigDir()/debug.log.
func (c *Config) DebugLogPath() (string, error) {
	if c.DebugLog != "" {
		return expandHome(c.DebugLog)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}

// EditorCommand returns the configured editor, then $EDITOR, then vi.
func (c *Config) EditorCommand() string {
	return firstNonEmpty(c.Editor, os.Getenv("EDITOR"), "vi")
}

// PagerCommand returns the configured pager, then $PAGER, then less.
func (c *Config) PagerCommand() string {
	return firstNonEmpty(c.Pager, os.Getenv("PAGER"), "less")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) > 1 && path[0] == '~' && path[1] == '/'
}

// Package config loads tracker settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds daemon and client settings.
type Config struct {
	// Listen is the daemon's HTTP listen address.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
	// APITimeout bounds client requests to the daemon.
	APITimeout time.Duration `yaml:"api_timeout" mapstructure:"api_timeout"`
	// Autosave controls background flushing of the store.
	Autosave AutosaveConfig `yaml:"autosave" mapstructure:"autosave"`
	// Audit controls the mutation journal.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`
}

// AutosaveConfig configures the background flusher. When disabled every
// mutation is written through immediately.
type AutosaveConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// AuditConfig configures the journal.
type AuditConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "127.0.0.1:8080",
		DBPath:     filepath.Join(Dir(), "tracker.db"),
		APITimeout: 10 * time.Second,
		Autosave: AutosaveConfig{
			Enabled:  true,
			Interval: 5 * time.Second,
		},
		Audit: AuditConfig{Enabled: true},
	}
}

// Dir returns the tracker's home directory, ~/.tracker.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tracker"
	}
	return filepath.Join(home, ".tracker")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error.
// TRACKER_* environment variables override file values, e.g.
// TRACKER_AUTOSAVE_INTERVAL=30s.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("tracker")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can see it even when the
// file does not mention it.
func bindDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("api_timeout", cfg.APITimeout)
	v.SetDefault("autosave.enabled", cfg.Autosave.Enabled)
	v.SetDefault("autosave.interval", cfg.Autosave.Interval)
	v.SetDefault("audit.enabled", cfg.Audit.Enabled)
}

// Validate checks values that would make the daemon misbehave.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is empty")
	}
	if c.Autosave.Enabled && c.Autosave.Interval <= 0 {
		return fmt.Errorf("config: autosave.interval must be positive, got %s", c.Autosave.Interval)
	}
	return nil
}

// Save writes c to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

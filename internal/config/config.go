// Package config loads servicer settings from flags, SERVICER_* environment
// variables and an optional servicer.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SERVICER_UNIT_DIR
const EnvPrefix = "SERVICER"

// Keys
const (
	KeyUnitDir        = "unit_dir"
	KeySampleInterval = "sample_interval"
	KeyConcurrency    = "concurrency"
	KeyTimeout        = "timeout"
	KeyEditor         = "editor"
	KeyReloadPolicy   = "reload_policy"
	KeyInterpreters   = "interpreters"
	KeyJournalctl     = "journalctl"
	KeySudo           = "sudo"
	KeyLogLevel       = "log_level"
)

// Config is the merged configuration
type Config struct {
	UnitDir        string            `mapstructure:"unit_dir"`
	SampleInterval time.Duration     `mapstructure:"sample_interval"`
	Concurrency    int               `mapstructure:"concurrency"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	Editor         string            `mapstructure:"editor"`
	ReloadPolicy   string            `mapstructure:"reload_policy"`
	// Interpreters maps extensions to binaries; the leading dot is optional
	// and best left out since viper reads dots in keys as nesting
	Interpreters   map[string]string `mapstructure:"interpreters"`
	Journalctl     string            `mapstructure:"journalctl"`
	Sudo           string            `mapstructure:"sudo"`
	LogLevel       string            `mapstructure:"log_level"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyUnitDir, "/etc/systemd/system")
	v.SetDefault(KeySampleInterval, 100*time.Millisecond)
	v.SetDefault(KeyConcurrency, 10)
	v.SetDefault(KeyTimeout, 5*time.Second)
	v.SetDefault(KeyEditor, "")
	v.SetDefault(KeyReloadPolicy, "failed-only")
	v.SetDefault(KeyInterpreters, map[string]string{})
	v.SetDefault(KeyJournalctl, "journalctl")
	v.SetDefault(KeySudo, "sudo")
	v.SetDefault(KeyLogLevel, "warn")
}

// Init points v at a config file and the environment. With an empty path
// servicer.yaml is searched in /etc/servicer and the working directory.
func Init(v *viper.Viper, path string) error {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("servicer")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/servicer")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the tool cannot run with
func (c *Config) Validate() error {
	switch {
	case c.UnitDir == "":
		return errors.New("config: unit_dir must not be empty")
	case c.SampleInterval <= 0:
		return fmt.Errorf("config: sample_interval must be positive, got %s", c.SampleInterval)
	case c.Concurrency < 1:
		return fmt.Errorf("config: concurrency must be at least 1, got %d", c.Concurrency)
	case c.Timeout < 0:
		return fmt.Errorf("config: timeout must not be negative, got %s", c.Timeout)
	}
	for ext, bin := range c.Interpreters {
		switch {
		case strings.Trim(ext, ".") == "":
			return fmt.Errorf("config: interpreter extension %q is empty", ext)
		case strings.TrimSpace(bin) == "":
			return fmt.Errorf("config: interpreter for %q is empty", ext)
		}
	}
	return nil
}

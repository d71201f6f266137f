package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/radar/types"
)

// Config represents a radar.yaml configuration file.
// All values are optional and act as defaults for radar watch flags.
// CLI flags always override config values.
type Config struct {
	Endpoint        string          `yaml:"endpoint"`
	HistorySize     int             `yaml:"history_size"`
	MaxPendingBytes int             `yaml:"max_pending_bytes"`
	ReadBufferBytes int             `yaml:"read_buffer_bytes"`
	Reconnect       ReconnectConfig `yaml:"reconnect"`
	Metrics         MetricsConfig   `yaml:"metrics"`
	Adapter         AdapterConfig   `yaml:"adapter"`
	Log             LogConfig       `yaml:"log"`
}

// ReconnectConfig holds the reconnect policy.
// MaxDelay above Delay selects capped exponential backoff.
type ReconnectConfig struct {
	Delay    Duration `yaml:"delay"`
	MaxDelay Duration `yaml:"max_delay"`
	OnClose  bool     `yaml:"on_close"`
}

// MetricsConfig holds the Prometheus exporter settings.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// AdapterConfig holds alert adapter defaults from the config file.
type AdapterConfig struct {
	Type        string            `yaml:"type"`
	URL         string            `yaml:"url"`
	Channel     string            `yaml:"channel,omitempty"`
	Encoding    string            `yaml:"encoding,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Timeout     Duration          `yaml:"timeout,omitempty"`
	Retries     *int              `yaml:"retries,omitempty"`
	MinSeverity string            `yaml:"min_severity,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "2s", "1m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "2s" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks values that YAML typing cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.HistorySize < 0 {
		errs = append(errs, fmt.Errorf("history_size must be >= 0, got %d", c.HistorySize))
	}
	if c.ReadBufferBytes < 0 {
		errs = append(errs, fmt.Errorf("read_buffer_bytes must be >= 0, got %d", c.ReadBufferBytes))
	}
	if c.Reconnect.Delay.Duration < 0 || c.Reconnect.MaxDelay.Duration < 0 {
		errs = append(errs, errors.New("reconnect delays must be >= 0"))
	}
	if c.Reconnect.MaxDelay.Duration > 0 && c.Reconnect.MaxDelay.Duration < c.Reconnect.Delay.Duration {
		errs = append(errs, fmt.Errorf("reconnect.max_delay %s is below reconnect.delay %s",
			c.Reconnect.MaxDelay.Duration, c.Reconnect.Delay.Duration))
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.MinSeverity != "" {
		if _, ok := types.ParseSeverity(c.Adapter.MinSeverity); !ok {
			errs = append(errs, fmt.Errorf("adapter.min_severity %q is not INFO, WARNING, or CRITICAL", c.Adapter.MinSeverity))
		}
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}
	return errors.Join(errs...)
}

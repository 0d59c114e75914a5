package config

import (
	"fmt"
	"time"

	redisclient "github.com/vietddude/streamwatch/internal/infra/redis"
)

// Duration is a time.Duration that unmarshals from YAML either as a
// Go duration string ("90s", "2m") or as a bare integer in seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds int64
	if err := unmarshal(&seconds); err != nil {
		return fmt.Errorf("duration must be a string like \"90s\" or an integer in seconds: %w", err)
	}
	*d = Duration(time.Duration(seconds) * time.Second)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig       `yaml:"server"`
	Stream  StreamConfig       `yaml:"stream"`
	Auth    AuthConfig         `yaml:"auth"`
	Rules   []RuleConfig       `yaml:"rules"`
	Redis   redisclient.Config `yaml:"redis"`
	Logging LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// StreamConfig holds settings for the streaming connection.
type StreamConfig struct {
	URL         string   `yaml:"url"`
	RulesURL    string   `yaml:"rules_url"`
	IdleTimeout Duration `yaml:"idle_timeout"` // watchdog timeout
	StaleAfter  Duration `yaml:"stale_after"`  // health: max silence before degraded, 0 = off
	SinkBuffer  int      `yaml:"sink_buffer"`  // async sink capacity
}

// AuthConfig holds the credential exchange settings.
type AuthConfig struct {
	TokenURL string `yaml:"token_url"`
	Key      string `yaml:"key"`
	Secret   string `yaml:"secret"`
}

// RuleConfig is one filter rule to install at startup.
type RuleConfig struct {
	Value string `yaml:"value"`
	Tag   string `yaml:"tag"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

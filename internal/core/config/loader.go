package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Stream.URL == "" {
		return nil, fmt.Errorf("stream.url is required")
	}
	if cfg.Auth.TokenURL == "" {
		return nil, fmt.Errorf("auth.token_url is required")
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Stream.IdleTimeout == 0 {
		cfg.Stream.IdleTimeout = Duration(90 * time.Second)
	}
	if cfg.Stream.SinkBuffer == 0 {
		cfg.Stream.SinkBuffer = 256
	}

	return &cfg, nil
}

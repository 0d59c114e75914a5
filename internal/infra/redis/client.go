// Package redis publishes sanitized stream records to a Redis channel
// for out-of-process consumers.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
}

// Client wraps the Redis connection and implements sink.Sink by
// publishing each record to the configured channel.
type Client struct {
	rdb     *redis.Client
	channel string
}

// NewClient creates a Redis client and verifies the connection.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "streamwatch:records"
	}

	return &Client{rdb: rdb, channel: channel}, nil
}

// OnRecord publishes the record text. Failures are logged, not
// propagated; the stream must not care about a slow subscriber side.
func (c *Client) OnRecord(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.rdb.Publish(ctx, c.channel, text).Err(); err != nil {
		slog.Warn("Failed to publish record to redis", "channel", c.channel, "error", err)
	}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

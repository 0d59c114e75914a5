// Package control wires the application together and manages its
// lifecycle: credential exchange, rule provisioning, the stream
// supervisor and the health server.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/streamwatch/internal/core/config"
	"github.com/vietddude/streamwatch/internal/health"
	"github.com/vietddude/streamwatch/internal/infra/api"
	redisclient "github.com/vietddude/streamwatch/internal/infra/redis"
	"github.com/vietddude/streamwatch/internal/stream/sink"
	"github.com/vietddude/streamwatch/internal/stream/supervisor"
)

// Config holds the application configuration.
type Config struct {
	Port   int
	Stream config.StreamConfig
	Auth   config.AuthConfig
	Rules  []config.RuleConfig
	Redis  redisclient.Config
}

// App is the assembled application.
type App struct {
	cfg          Config
	sup          *supervisor.Supervisor
	healthServer *health.Server
	redisClient  *redisclient.Client
	async        *sink.Async
	log          *slog.Logger

	done    chan error
	stopped chan struct{}
}

// New performs the startup sequence: exchange credentials, reset the
// server-side filter rules to the configured set, and build the
// supervisor with its sinks. Any failure here is fatal.
func New(cfg Config) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Credential exchange. One shot, no retry.
	authClient := api.NewAuthClient(cfg.Auth.TokenURL, cfg.Auth.Key, cfg.Auth.Secret)
	token, err := authClient.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain bearer token: %w", err)
	}
	slog.Info("Obtained bearer token")

	// 2. Reset filter rules to the configured set.
	if cfg.Stream.RulesURL != "" {
		if err := resetRules(ctx, api.NewRulesClient(cfg.Stream.RulesURL, token), cfg.Rules); err != nil {
			return nil, err
		}
	} else if len(cfg.Rules) > 0 {
		return nil, fmt.Errorf("rules configured but stream.rules_url is empty")
	}

	// 3. Sinks. Redis is optional; the log sink is always on.
	sinks := sink.Multi{sink.NewLogSink()}
	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, publish sink disabled", "error", err)
		} else {
			sinks = append(sinks, redisClient)
			slog.Info("Redis publish sink enabled")
		}
	}
	async := sink.NewAsync(sinks, cfg.Stream.SinkBuffer)

	// 4. Supervisor.
	sup := supervisor.New(supervisor.Config{
		StreamURL:   cfg.Stream.URL,
		Token:       token,
		IdleTimeout: cfg.Stream.IdleTimeout.Std(),
		Sink:        async,
	})

	// 5. Health monitor and server.
	monitor := health.NewMonitor(sup, cfg.Stream.StaleAfter.Std())
	healthServer := health.NewServer(monitor, cfg.Port)

	return &App{
		cfg:          cfg,
		sup:          sup,
		healthServer: healthServer,
		redisClient:  redisClient,
		async:        async,
		log:          slog.Default(),
		done:         make(chan error, 1),
		stopped:      make(chan struct{}),
	}, nil
}

// resetRules deletes every installed rule and installs the configured
// set, so the server-side filter always matches the config.
func resetRules(ctx context.Context, rules *api.RulesClient, configured []config.RuleConfig) error {
	ids, err := rules.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}

	deleted, err := rules.Delete(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}

	toAdd := make([]api.Rule, 0, len(configured))
	for _, r := range configured {
		toAdd = append(toAdd, api.Rule{Value: r.Value, Tag: r.Tag})
	}
	added, err := rules.Add(ctx, toAdd)
	if err != nil {
		return fmt.Errorf("failed to add rules: %w", err)
	}

	slog.Info("Filter rules reset", "deleted", deleted, "added", added)
	return nil
}

// Start launches the health server and the supervisor loop.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	go func() {
		err := a.sup.Run(ctx)
		close(a.stopped)
		a.done <- err
	}()

	return nil
}

// Done delivers the supervisor's terminal result: nil for a clean stop,
// an error for a fatal stream termination.
func (a *App) Done() <-chan error {
	return a.done
}

// Status returns the supervisor's current snapshot.
func (a *App) Status() supervisor.Status {
	return a.sup.Status()
}

// Stop shuts the application down: supervisor first, then sinks, then
// the health server.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping streamwatch...")

	a.sup.Stop()
	select {
	case <-a.stopped:
	case <-ctx.Done():
		a.log.Warn("Supervisor did not stop before deadline")
	}
	// Safe even if the supervisor is still handing records over: the
	// sink drops late sends instead of accepting them.
	a.async.Close()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}

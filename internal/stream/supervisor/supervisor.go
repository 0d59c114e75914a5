// Package supervisor owns the streaming connection lifecycle: establish,
// read, classify termination, back off, re-establish.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/streamwatch/internal/core/domain"
	"github.com/vietddude/streamwatch/internal/stream/backoff"
	"github.com/vietddude/streamwatch/internal/stream/metrics"
	"github.com/vietddude/streamwatch/internal/stream/sink"
	"github.com/vietddude/streamwatch/internal/stream/watchdog"
)

const (
	// maxChunkBytes bounds a single body line.
	maxChunkBytes = 1 << 20
	// maxDrainBytes bounds how much of an error response body is read
	// before the connection is dropped.
	maxDrainBytes = 16 << 10
)

// Config holds supervisor settings.
type Config struct {
	StreamURL   string
	Token       string        // bearer token, fixed for the process lifetime
	IdleTimeout time.Duration // watchdog timeout, default 90s
	Policy      backoff.Policy
	Sink        sink.Sink
	HTTPClient  *http.Client // optional override, mainly for tests
}

// Status is a snapshot of the supervisor for health reporting.
type Status struct {
	Running      bool      `json:"running"`
	Connected    bool      `json:"connected"`
	SessionID    string    `json:"session_id,omitempty"`
	Records      uint64    `json:"records"`
	Keepalives   uint64    `json:"keepalives"`
	Reconnects   uint64    `json:"reconnects"`
	LastRecordAt time.Time `json:"last_record_at,omitzero"`
	LastCause    string    `json:"last_cause,omitempty"`
	Backoff      string    `json:"backoff"`
}

// Supervisor runs the connection state machine. At most one stream
// session exists at a time and only the supervisor holds its cancel.
type Supervisor struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger

	running atomic.Bool
	cancel  context.CancelFunc

	mu     sync.Mutex
	status Status
}

// New creates a supervisor. The sink must be set; an http client is
// built with streaming-safe defaults (no overall timeout) when absent.
func New(cfg Config) *Supervisor {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 90 * time.Second
	}
	if cfg.Policy == (backoff.Policy{}) {
		cfg.Policy = backoff.DefaultPolicy()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Supervisor{
		cfg:        cfg,
		httpClient: client,
		log:        slog.Default(),
	}
}

// session is one attempt at an open connection. The watchdog cancels it
// via cancel; selfTimeout marks that the cancellation was ours.
type session struct {
	id          string
	cancel      context.CancelFunc
	selfTimeout atomic.Bool
}

// Run drives the reconnect loop until the context is cancelled, Stop is
// called, or a fatal cause is classified. A fatal cause is returned as
// an error; a clean stop returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("supervisor already running")
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.status.Running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.status.Running = false
		s.mu.Unlock()
	}()

	state := backoff.State(0)

	for {
		cause, active := s.runSession(ctx)

		if ctx.Err() != nil {
			s.log.Info("Supervisor stopped")
			return nil
		}

		// Healthy activity on the dead connection already reset the run
		// of failures; the next delay starts from scratch.
		if active {
			state = 0
		}

		s.noteTermination(cause)
		metrics.ReconnectsTotal.WithLabelValues(string(cause.Category())).Inc()

		if cause.Fatal() {
			s.log.Error("Fatal stream termination", "cause", cause.String())
			return fmt.Errorf("stream terminated: %s", cause)
		}

		var delay time.Duration
		state, delay = s.cfg.Policy.Next(state, cause)
		metrics.BackoffSeconds.Set(state.Seconds())
		s.setBackoff(state)

		s.log.Info("Reconnecting",
			"cause", cause.String(),
			"delay", delay,
			"backoff", time.Duration(state))

		if delay > 0 {
			select {
			case <-ctx.Done():
				s.log.Info("Supervisor stopped during backoff")
				return nil
			case <-time.After(delay):
			}
		}
	}
}

// Stop cancels the in-flight session and ends the run loop.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Status returns a snapshot for health reporting.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// runSession performs one Connecting -> Streaming pass and returns the
// termination cause plus whether any chunk was processed on the
// connection (which resets the backoff run).
func (s *Supervisor) runSession(ctx context.Context) (domain.TerminationCause, bool) {
	sess := &session{id: uuid.New().String()}
	sctx, cancel := context.WithCancel(ctx)
	sess.cancel = cancel
	defer cancel()

	// Armed before the request goes out so a stalled connect is caught.
	wd := watchdog.New(func() {
		sess.selfTimeout.Store(true)
		sess.cancel()
	})
	wd.Arm(s.cfg.IdleTimeout)
	defer wd.Disarm()

	s.log.Info("Connecting", "session", sess.id, "url", s.cfg.StreamURL)
	connectStart := time.Now()

	req, err := http.NewRequestWithContext(sctx, http.MethodGet, s.cfg.StreamURL, nil)
	if err != nil {
		return domain.FatalTransport(fmt.Errorf("create request: %w", err)), false
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return classifyConnect(sess, err), false
	}
	defer resp.Body.Close()

	metrics.ConnectDuration.Observe(time.Since(connectStart).Seconds())

	if resp.StatusCode != http.StatusOK {
		wd.Disarm()
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		s.log.Warn("Stream request rejected", "session", sess.id, "status", resp.StatusCode)
		return domain.HTTPStatus(resp.StatusCode), false
	}

	s.setConnected(true, sess.id)
	metrics.Connected.Set(1)
	defer func() {
		s.setConnected(false, "")
		metrics.Connected.Set(0)
	}()
	s.log.Info("Streaming", "session", sess.id)

	active := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxChunkBytes)

	for scanner.Scan() {
		// Record or keepalive, the connection proved itself alive.
		wd.Refresh(s.cfg.IdleTimeout)
		active = true
		metrics.BackoffSeconds.Set(0)
		s.setBackoff(0)

		if rec, ok := domain.DecodeRecord(scanner.Bytes()); ok {
			metrics.RecordsTotal.Inc()
			s.noteRecord()
			s.cfg.Sink.OnRecord(rec.DisplayText())
		} else {
			metrics.KeepalivesTotal.Inc()
			s.noteKeepalive()
		}
	}

	// Disarmed before classification so a fire racing the read error
	// cannot relabel an already-decided cause.
	readErr := scanner.Err()
	wd.Disarm()
	return classifyRead(sess, readErr), active
}

// classifyRead maps a body-read termination onto a cause. The watchdog
// flag wins over everything: its cancellation surfaces as a context
// error that must not be mistaken for a real failure. Past that, a
// stream that was already established and stopped yielding is a dropped
// or truncated connection whatever error the transport reports (clean
// close, abrupt reset, oversized chunk), so it retries on the linear
// network law rather than terminating the process.
func classifyRead(sess *session, err error) domain.TerminationCause {
	if sess.selfTimeout.Load() {
		return domain.SelfTimeout()
	}
	if err == nil {
		// Server closed the stream cleanly.
		err = io.EOF
	}
	return domain.NetworkTimeout(err)
}

// classifyConnect maps a connect-phase failure onto a cause. Fatal
// transport is reserved for failures that retrying cannot cure, such as
// a malformed URL or a TLS handshake rejection.
func classifyConnect(sess *session, err error) domain.TerminationCause {
	if sess.selfTimeout.Load() {
		return domain.SelfTimeout()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NetworkTimeout(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NetworkTimeout(err)
	}
	return domain.FatalTransport(err)
}

func (s *Supervisor) setConnected(connected bool, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Connected = connected
	s.status.SessionID = sessionID
}

func (s *Supervisor) setBackoff(state backoff.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Backoff = time.Duration(state).String()
}

func (s *Supervisor) noteRecord() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Records++
	s.status.LastRecordAt = time.Now()
}

func (s *Supervisor) noteKeepalive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Keepalives++
}

func (s *Supervisor) noteTermination(cause domain.TerminationCause) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Reconnects++
	s.status.LastCause = cause.String()
}

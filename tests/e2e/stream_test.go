package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/streamwatch/internal/control"
	"github.com/vietddude/streamwatch/internal/core/config"
)

// backend fakes the full server side: token endpoint, rules endpoint
// and the streaming endpoint.
type backend struct {
	auth   *httptest.Server
	rules  *httptest.Server
	stream *httptest.Server

	streamRequests atomic.Int32
	streamHandler  atomic.Value // func(w http.ResponseWriter, r *http.Request)
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}

	b.auth = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"e2e-token"}`)
	}))
	t.Cleanup(b.auth.Close)

	b.rules = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"data":[]}`)
			return
		}
		fmt.Fprint(w, `{"meta":{"summary":{"created":1,"deleted":0}}}`)
	}))
	t.Cleanup(b.rules.Close)

	b.stream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.streamRequests.Add(1)
		handler := b.streamHandler.Load().(func(http.ResponseWriter, *http.Request))
		handler(w, r)
	}))
	t.Cleanup(b.stream.Close)

	return b
}

func (b *backend) appConfig() control.Config {
	return control.Config{
		Port: 0,
		Stream: config.StreamConfig{
			URL:         b.stream.URL,
			RulesURL:    b.rules.URL,
			IdleTimeout: config.Duration(time.Second),
			SinkBuffer:  16,
		},
		Auth: config.AuthConfig{
			TokenURL: b.auth.URL,
			Key:      "k",
			Secret:   "s",
		},
		Rules: []config.RuleConfig{{Value: "cats", Tag: "pics"}},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestStreamLifecycle(t *testing.T) {
	b := newBackend(t)

	// First connection dies after two records; later connections hold.
	b.streamHandler.Store(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "\r\n")
		flusher.Flush()
		fmt.Fprint(w, "{\"id\":\"1\",\"text\":\"first\"}\n")
		flusher.Flush()
		fmt.Fprint(w, "{\"id\":\"2\",\"text\":\"second\"}\n")
		flusher.Flush()
		if b.streamRequests.Load() > 1 {
			<-r.Context().Done()
		}
	})

	app, err := control.New(b.appConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Records flow, the dropped connection is re-established, and the
	// keepalive was counted without producing a record.
	waitFor(t, 5*time.Second, func() bool {
		st := app.Status()
		return st.Records >= 4 && st.Keepalives >= 2 && b.streamRequests.Load() >= 2
	})

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := <-app.Done(); err != nil {
		t.Errorf("Done = %v, want nil", err)
	}
}

func TestFatalStatusSurfacesAtProcessBoundary(t *testing.T) {
	b := newBackend(t)
	b.streamHandler.Store(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable for legal reasons", 451)
	})

	app, err := control.New(b.appConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case err := <-app.Done():
		if err == nil {
			t.Fatal("Done delivered nil for a fatal status")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fatal termination not surfaced")
	}

	if b.streamRequests.Load() != 1 {
		t.Errorf("stream requests = %d, want 1 (no reconnect after fatal)", b.streamRequests.Load())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = app.Stop(stopCtx)
}

func TestGracefulShutdownMidStream(t *testing.T) {
	b := newBackend(t)
	b.streamHandler.Store(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		for i := 0; ; i++ {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			fmt.Fprintf(w, "{\"id\":\"%d\",\"text\":\"tick\"}\n", i)
			flusher.Flush()
		}
	})

	app, err := control.New(b.appConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return app.Status().Records > 0 })

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	start := time.Now()
	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Stop took %v, want prompt cancellation", elapsed)
	}
}

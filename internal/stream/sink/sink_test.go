package sink

import (
	"sync"
	"testing"
	"time"
)

// collectSink records everything it receives.
type collectSink struct {
	mu    sync.Mutex
	texts []string
	block chan struct{} // when set, OnRecord waits on it
}

func (c *collectSink) OnRecord(text string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
}

func (c *collectSink) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.texts))
	copy(out, c.texts)
	return out
}

func TestAsyncDeliversInOrder(t *testing.T) {
	inner := &collectSink{}
	a := NewAsync(inner, 16)

	a.OnRecord("one")
	a.OnRecord("two")
	a.OnRecord("three")
	a.Close()

	got := inner.got()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("delivered %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAsyncNeverBlocksCaller(t *testing.T) {
	inner := &collectSink{block: make(chan struct{})}
	a := NewAsync(inner, 1)

	done := make(chan struct{})
	go func() {
		// Way past buffer capacity while the worker is stuck.
		for i := 0; i < 100; i++ {
			a.OnRecord("x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnRecord blocked on a saturated sink")
	}

	close(inner.block)
	a.Close()
}

func TestMultiFansOut(t *testing.T) {
	a := &collectSink{}
	b := &collectSink{}
	m := Multi{a, b}

	m.OnRecord("hello")

	if len(a.got()) != 1 || len(b.got()) != 1 {
		t.Errorf("fan-out = (%d, %d) records, want (1, 1)", len(a.got()), len(b.got()))
	}
}

func TestAsyncCloseIsIdempotent(t *testing.T) {
	a := NewAsync(&collectSink{}, 4)
	a.Close()
	a.Close()
}

func TestAsyncCloseWithActiveProducer(t *testing.T) {
	inner := &collectSink{}
	a := NewAsync(inner, 4)

	// A producer that outlives Close, as when a shutdown deadline
	// expires while the stream loop is still delivering.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				a.OnRecord("late")
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	closed := make(chan struct{})
	go func() {
		a.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return with a producer still sending")
	}

	close(stop)
	wg.Wait()

	// Sends after Close must be dropped, never panic.
	a.OnRecord("after close")
}

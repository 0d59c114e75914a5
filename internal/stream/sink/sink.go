// Package sink delivers sanitized record text to downstream consumers.
package sink

import (
	"log/slog"
	"sync"

	"github.com/vietddude/streamwatch/internal/stream/metrics"
)

// Sink receives sanitized display text for each decoded record.
// Implementations must return quickly; slow consumers go behind Async.
type Sink interface {
	OnRecord(text string)
}

// LogSink writes each record to the structured log.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink() *LogSink {
	return &LogSink{log: slog.Default()}
}

func (s *LogSink) OnRecord(text string) {
	s.log.Info("Record", "text", text)
}

// Multi fans one record out to several sinks in order.
type Multi []Sink

func (m Multi) OnRecord(text string) {
	for _, s := range m {
		s.OnRecord(text)
	}
}

// Async decouples the supervisor loop from the sink. Records are
// buffered; when the buffer is full they are dropped and counted, never
// blocking the caller.
type Async struct {
	next Sink
	ch   chan string
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewAsync starts the delivery worker with the given buffer size.
func NewAsync(next Sink, buffer int) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{
		next: next,
		ch:   make(chan string, buffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

// OnRecord is safe to call concurrently with Close: the buffer channel
// is never closed, so a late producer drops its record instead of
// panicking.
func (a *Async) OnRecord(text string) {
	select {
	case a.ch <- text:
	default:
		metrics.SinkDroppedTotal.Inc()
		slog.Warn("Sink buffer full, dropping record")
	}
}

// Close stops the worker after draining buffered records.
func (a *Async) Close() {
	a.once.Do(func() { close(a.quit) })
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for {
		select {
		case text := <-a.ch:
			a.next.OnRecord(text)
		case <-a.quit:
			// Bounded drain: only the backlog present at shutdown,
			// so a producer still sending cannot keep us alive.
			for n := len(a.ch); n > 0; n-- {
				a.next.OnRecord(<-a.ch)
			}
			return
		}
	}
}

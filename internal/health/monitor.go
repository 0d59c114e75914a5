package health

import (
	"time"

	"github.com/vietddude/streamwatch/internal/stream/supervisor"
)

// StatusSource exposes the supervisor's current state.
type StatusSource interface {
	Status() supervisor.Status
}

// Monitor derives a health verdict from the supervisor status.
type Monitor struct {
	src        StatusSource
	staleAfter time.Duration
}

// NewMonitor creates a monitor. staleAfter bounds how old the last
// record may be while the stream is still called healthy; zero disables
// the staleness check (quiet streams are legitimate).
func NewMonitor(src StatusSource, staleAfter time.Duration) *Monitor {
	return &Monitor{src: src, staleAfter: staleAfter}
}

// Check builds the current health report.
func (m *Monitor) Check() Report {
	st := m.src.Status()

	status := StatusHealthy
	switch {
	case !st.Running:
		status = StatusCritical
	case !st.Connected:
		// Between sessions: backoff wait or reconnect in flight.
		status = StatusDegraded
	case m.staleAfter > 0 && !st.LastRecordAt.IsZero() &&
		time.Since(st.LastRecordAt) > m.staleAfter:
		status = StatusDegraded
	}

	return Report{Status: status, Stream: st}
}

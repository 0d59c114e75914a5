// Package domain holds the core types shared across the stream pipeline.
package domain

import (
	"fmt"
	"net/http"
)

// CauseKind identifies how a stream session ended.
type CauseKind int

const (
	CauseSelfTimeout    CauseKind = iota // idle watchdog cancelled the session
	CauseNetworkTimeout                  // transport-level timeout or dropped connection
	CauseFatalTransport                  // unretryable transport failure
	CauseHTTPStatus                      // server answered with a non-200 status
)

// TerminationCause is produced exactly once per session termination and
// consumed exactly once by the reconnect decision.
type TerminationCause struct {
	Kind   CauseKind
	Status int   // set when Kind == CauseHTTPStatus
	Err    error // underlying transport error, if any
}

// Category groups causes by their backoff law.
type Category string

const (
	CategorySelfTimeout    Category = "self_timeout"
	CategoryNetworkTimeout Category = "network_timeout"
	CategoryBackoffSignal  Category = "backoff_signal"
	CategoryRateLimited    Category = "rate_limited"
	CategoryServerError    Category = "server_error"
	CategoryFatal          Category = "fatal"
)

// SelfTimeout builds the cause for a watchdog-cancelled session.
func SelfTimeout() TerminationCause {
	return TerminationCause{Kind: CauseSelfTimeout}
}

// NetworkTimeout builds the cause for a transient transport failure.
func NetworkTimeout(err error) TerminationCause {
	return TerminationCause{Kind: CauseNetworkTimeout, Err: err}
}

// FatalTransport builds the cause for an unretryable transport failure.
func FatalTransport(err error) TerminationCause {
	return TerminationCause{Kind: CauseFatalTransport, Err: err}
}

// HTTPStatus builds the cause for a non-200 response.
func HTTPStatus(code int) TerminationCause {
	return TerminationCause{Kind: CauseHTTPStatus, Status: code}
}

// Category maps the cause onto its backoff law.
func (c TerminationCause) Category() Category {
	switch c.Kind {
	case CauseSelfTimeout:
		return CategorySelfTimeout
	case CauseNetworkTimeout:
		return CategoryNetworkTimeout
	case CauseFatalTransport:
		return CategoryFatal
	case CauseHTTPStatus:
		switch c.Status {
		case http.StatusNotModified:
			return CategoryBackoffSignal
		case 420, http.StatusTooManyRequests:
			return CategoryRateLimited
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return CategoryServerError
		}
		return CategoryFatal
	}
	return CategoryFatal
}

// Fatal reports whether the supervisor must stop instead of reconnecting.
func (c TerminationCause) Fatal() bool {
	return c.Category() == CategoryFatal
}

func (c TerminationCause) String() string {
	switch c.Kind {
	case CauseSelfTimeout:
		return "self timeout"
	case CauseNetworkTimeout:
		return fmt.Sprintf("network timeout: %v", c.Err)
	case CauseFatalTransport:
		return fmt.Sprintf("fatal transport: %v", c.Err)
	case CauseHTTPStatus:
		return fmt.Sprintf("http status %d", c.Status)
	}
	return "unknown"
}

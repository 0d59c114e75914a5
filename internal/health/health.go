// Package health provides system health monitoring and status reporting.
package health

import "github.com/vietddude/streamwatch/internal/stream/supervisor"

// SystemStatus represents the overall health state of the system.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full health report.
type Report struct {
	Status SystemStatus      `json:"status"`
	Stream supervisor.Status `json:"stream"`
}

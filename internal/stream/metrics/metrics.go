package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsTotal counts successfully decoded stream records
	RecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamwatch_records_total",
			Help: "Total number of records decoded from the stream",
		},
	)

	// KeepalivesTotal counts chunks that failed structured decoding
	KeepalivesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamwatch_keepalives_total",
			Help: "Total number of keepalive chunks received",
		},
	)

	// ReconnectsTotal counts session terminations by cause category
	ReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamwatch_reconnects_total",
			Help: "Total number of stream terminations by cause",
		},
		[]string{"cause"},
	)

	// BackoffSeconds tracks the current accumulated backoff state
	BackoffSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamwatch_backoff_seconds",
			Help: "Current accumulated backoff state in seconds",
		},
	)

	// Connected is 1 while a stream session is open and healthy
	Connected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamwatch_connected",
			Help: "Whether a stream connection is currently open",
		},
	)

	// ConnectDuration tracks how long connection establishment takes
	ConnectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streamwatch_connect_duration_seconds",
			Help:    "Time from issuing the stream request to receiving a response",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SinkDroppedTotal counts records dropped because the sink was saturated
	SinkDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamwatch_sink_dropped_total",
			Help: "Total number of records dropped by the async sink buffer",
		},
	)
)

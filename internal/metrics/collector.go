package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	LinesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smdrd_lines_received_total",
			Help: "Total SMDR lines received from switches",
		},
		[]string{"source"},
	)
	BytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smdrd_bytes_received_total",
			Help: "Total bytes read from ingest connections",
		},
	)
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smdrd_active_connections",
			Help: "Currently open ingest connections",
		},
	)

	// Pipeline metrics
	RecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smdrd_records_dropped_total",
			Help: "Records dropped because the pipeline queue was full",
		},
	)
	RecordsFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smdrd_records_filtered_total",
			Help: "Records rejected by the configured filter expression",
		},
	)

	// Storage metrics
	LogWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smdrd_log_write_errors_total",
			Help: "Failed appends to the daily SMDR log",
		},
	)
	LogRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smdrd_log_rotations_total",
			Help: "Daily log file rotations",
		},
	)

	// Relay metrics
	ConnectedViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smdrd_connected_viewers",
			Help: "Viewers currently attached to the broadcast relay",
		},
	)
	ViewersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smdrd_viewers_dropped_total",
			Help: "Viewers removed after a failed or timed-out send",
		},
	)
	LinesBroadcast = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smdrd_lines_broadcast_total",
			Help: "Line deliveries to viewers (one per viewer per line)",
		},
	)
)

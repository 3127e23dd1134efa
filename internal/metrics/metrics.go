package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_bot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// Scan metrics
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_bot_scans_total",
			Help: "Total number of scans by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentiment_bot_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"kind"},
	)

	// Extraction metrics
	ExtractionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_bot_extraction_total",
			Help: "Total number of sentiment extractions by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// Collection metrics
	SourceCollectTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_bot_source_collect_total",
			Help: "Total number of per-source collections",
		},
		[]string{"status"},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_bot_notifications_total",
			Help: "Total number of notifications sent per channel",
		},
		[]string{"channel", "status"},
	)

	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentiment_bot_application_info",
			Help: "Application information",
		},
		[]string{"version", "environment"},
	)
)

// Status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusEmpty   = "empty"
)

// Init records static application information
func Init(version, environment string) {
	ApplicationInfo.WithLabelValues(version, environment).Set(1)
}

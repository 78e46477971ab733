package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aperture_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aperture_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SelectionTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aperture_selection_toggles_total",
			Help: "Selection flag changes by actor and outcome",
		},
		[]string{"actor", "outcome"},
	)

	ArchiveFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aperture_archive_files_total",
			Help: "Files processed during archive builds",
		},
		[]string{"outcome"},
	)
)

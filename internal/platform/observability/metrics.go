package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_updates_received_total",
		Help: "The total number of inbound messages by category",
	}, []string{"category"})

	RepliesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_replies_total",
		Help: "The total number of replies produced by outcome (ok or error kind)",
	}, []string{"outcome"})

	SendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_send_failures_total",
		Help: "Platform calls that failed by method",
	}, []string{"method"})

	CompletionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_completion_request_duration_seconds",
		Help:    "Duration of completion provider requests",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"status"})

	ImageDownloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_image_download_bytes",
		Help:    "Size of downloaded photos",
		Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
	})

	ImageDownloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_image_download_duration_seconds",
		Help:    "Duration of photo downloads",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	OCRDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_ocr_duration_seconds",
		Help:    "Duration of text extraction by engine and status",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"engine", "status"})

	InFlightUpdates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_in_flight_updates",
		Help: "Number of updates currently being handled",
	})

	StoredPreferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_language_selections_total",
		Help: "Language selections by chosen language",
	}, []string{"language"})
)

// Status labels for duration histograms.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

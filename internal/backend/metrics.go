package backend

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annotator_backend_requests_total",
			Help: "Total number of prediction backend calls",
		},
		[]string{"operation", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annotator_backend_request_duration_seconds",
			Help:    "Prediction backend call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// observeBackendCall records a call; status is 0 when no response arrived.
func observeBackendCall(op string, status int, d time.Duration) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	backendRequestsTotal.WithLabelValues(op, label).Inc()
	backendRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tranzac",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	recalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tranzac",
			Name:      "recalculations_total",
			Help:      "Cost estimate recalculations by outcome.",
		},
		[]string{"outcome"},
	)

	estimatesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tranzac",
			Name:      "estimates_sent_total",
			Help:      "Estimate send attempts by outcome.",
		},
		[]string{"outcome"},
	)

	pdfPollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tranzac",
			Name:      "pdf_generation_seconds",
			Help:      "Wall time spent waiting for PDF generation.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, recalculations, estimatesSent, pdfPollDuration)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncRecalculation records a recalculation outcome ("ok" or "error").
func IncRecalculation(outcome string) {
	recalculations.WithLabelValues(outcome).Inc()
}

// IncEstimateSent records a send outcome ("ok" or "error").
func IncEstimateSent(outcome string) {
	estimatesSent.WithLabelValues(outcome).Inc()
}

// ObservePDFGeneration records how long a PDF generation round trip took.
func ObservePDFGeneration(seconds float64) {
	pdfPollDuration.Observe(seconds)
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	CheckInsTotal         *prometheus.CounterVec
	TriageScoresTotal     *prometheus.CounterVec
	QueueDepth            prometheus.Gauge
	QueueTransitionsTotal *prometheus.CounterVec
	CallNextTotal         prometheus.Counter
	WaitTimeMinutes       prometheus.Histogram
	RecalcDuration        prometheus.Histogram

	AppointmentsTotal      *prometheus.CounterVec
	ConflictsDetectedTotal prometheus.Counter
	SuggestionsServedTotal prometheus.Counter

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		CheckInsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "queue",
			Name:      "check_ins_total",
			Help:      "Total patient check-ins by triage level.",
		}, []string{"level"}),

		TriageScoresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "triage",
			Name:      "scores_total",
			Help:      "Total triage scorings by resulting level.",
		}, []string{"level"}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "queue",
			Name:      "waiting_patients",
			Help:      "Current number of waiting queue entries.",
		}),

		QueueTransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "queue",
			Name:      "transitions_total",
			Help:      "Queue entry status transitions by from/to status.",
		}, []string{"from", "to"}),

		CallNextTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "queue",
			Name:      "call_next_total",
			Help:      "Total successful call-next claims.",
		}),

		WaitTimeMinutes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "queue",
			Name:      "wait_time_minutes",
			Help:      "Actual wait from check-in to being called, in minutes.",
			Buckets:   []float64{5, 10, 15, 30, 45, 60, 90, 120, 180},
		}),

		RecalcDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "queue",
			Name:      "recalc_duration_seconds",
			Help:      "Position recalculation latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),

		AppointmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "appointments_total",
			Help:      "Appointment state changes by resulting status.",
		}, []string{"status"}),

		ConflictsDetectedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "conflicts_detected_total",
			Help:      "Availability checks that found at least one conflict.",
		}),

		SuggestionsServedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "scheduling",
			Name:      "suggestions_served_total",
			Help:      "Alternative slots proposed to callers.",
		}),

		AuditEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

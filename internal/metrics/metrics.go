package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Synchronization Metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRunsTotal,
			Help: HelpTextRunsTotal,
		},
		[]string{LabelSynchronization, LabelStatus},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameRunDuration,
			Help:    HelpTextRunDuration,
			Buckets: RunDurationBuckets,
		},
		[]string{LabelSynchronization},
	)

	ObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameObjectsTotal,
			Help: HelpTextObjectsTotal,
		},
		[]string{LabelSynchronization, LabelOutcome},
	)

	SourcePagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSourcePagesFetched,
			Help: HelpTextSourcePagesFetched,
		},
		[]string{LabelSource},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRateLimitHits,
			Help: HelpTextRateLimitHits,
		},
		[]string{LabelSource},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

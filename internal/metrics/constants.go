package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "syncline_http_requests_total"
	MetricNameHTTPRequestDuration  = "syncline_http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "syncline_http_requests_in_flight"

	MetricNameRunsTotal          = "syncline_runs_total"
	MetricNameRunDuration        = "syncline_run_duration_seconds"
	MetricNameObjectsTotal       = "syncline_objects_total"
	MetricNameSourcePagesFetched = "syncline_source_pages_fetched_total"
	MetricNameRateLimitHits      = "syncline_rate_limit_hits_total"

	MetricNameEventsPublished    = "syncline_events_published_total"
	MetricNameEventHandlerErrors = "syncline_event_handler_errors_total"
)

// Help texts
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Number of HTTP requests currently being served"

	HelpTextRunsTotal          = "Total number of synchronization runs by terminal status"
	HelpTextRunDuration        = "Synchronization run duration in seconds"
	HelpTextObjectsTotal       = "Total number of reconciled objects by outcome"
	HelpTextSourcePagesFetched = "Total number of source pages fetched"
	HelpTextRateLimitHits      = "Total number of rate limit aborts per source"

	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// Label names
const (
	LabelMethod          = "method"
	LabelPath            = "path"
	LabelStatus          = "status"
	LabelType            = "type"
	LabelOutcome         = "outcome"
	LabelSynchronization = "synchronization"
	LabelSource          = "source"
)

// HTTPLatencyBuckets are the histogram buckets for HTTP request latency
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// RunDurationBuckets are the histogram buckets for run duration; runs over
// paginated sources can take minutes.
var RunDurationBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}

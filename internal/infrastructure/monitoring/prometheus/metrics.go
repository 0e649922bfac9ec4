package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// GapMetrics holds every metric the keyword gap engine exports. It satisfies
// the metrics interfaces of the provider client, the ranking fetcher and the
// analysis service.
type GapMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Provider Layer
	ProviderRequestsTotal   CounterVec
	ProviderRequestDuration HistogramVec
	ProviderRetriesTotal    CounterVec
	RateLimitWaitDuration   HistogramVec

	// Analysis Layer
	AnalysesTotal         CounterVec
	AnalysisDuration      HistogramVec
	DomainFetchesTotal    CounterVec
	DroppedRecordsTotal   CounterVec
	OpportunitiesPerRun   HistogramVec
	StorageOperationTotal CounterVec

	// Messaging Layer
	MessagesProcessedTotal CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAnalysisDurationBuckets = []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
	DefaultWaitBuckets             = []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultCountBuckets            = []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000}
)

// NewGapMetrics registers all metrics on collector.
func NewGapMetrics(collector MetricsCollector) *GapMetrics {
	m := &GapMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	// Provider
	m.ProviderRequestsTotal = collector.RegisterCounter("provider_requests_total", "Ranking provider requests by outcome", "outcome")
	m.ProviderRequestDuration = collector.RegisterHistogram("provider_request_duration_seconds", "Ranking provider request duration", DefaultHTTPDurationBuckets, "outcome")
	m.ProviderRetriesTotal = collector.RegisterCounter("provider_retries_total", "Ranking provider retries by error code", "code")
	m.RateLimitWaitDuration = collector.RegisterHistogram("provider_rate_limit_wait_seconds", "Time spent waiting on the provider rate limiter", DefaultWaitBuckets)

	// Analysis
	m.AnalysesTotal = collector.RegisterCounter("analyses_total", "Completed analyses by outcome", "outcome")
	m.AnalysisDuration = collector.RegisterHistogram("analysis_duration_seconds", "End-to-end analysis duration", DefaultAnalysisDurationBuckets, "outcome")
	m.DomainFetchesTotal = collector.RegisterCounter("domain_fetches_total", "Domain keyword fetches by role and status", "role", "status")
	m.DroppedRecordsTotal = collector.RegisterCounter("dropped_records_total", "Provider records discarded during normalization")
	m.OpportunitiesPerRun = collector.RegisterHistogram("opportunities_per_analysis", "Opportunities produced per analysis", DefaultCountBuckets)
	m.StorageOperationTotal = collector.RegisterCounter("storage_operations_total", "Snapshot store operations", "operation", "result")

	// Messaging
	m.MessagesProcessedTotal = collector.RegisterCounter("messages_processed_total", "Consumed messages by topic and result", "topic", "result")

	return m
}

// RecordProviderRequest implements the provider client metrics hook.
func (m *GapMetrics) RecordProviderRequest(outcome string, d time.Duration) {
	m.ProviderRequestsTotal.WithLabelValues(outcome).Inc()
	m.ProviderRequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *GapMetrics) RecordRetry(code string) {
	m.ProviderRetriesTotal.WithLabelValues(code).Inc()
}

func (m *GapMetrics) RecordRateLimitWait(d time.Duration) {
	m.RateLimitWaitDuration.WithLabelValues().Observe(d.Seconds())
}

func (m *GapMetrics) RecordDomainFetch(role string, status analysis.DomainStatus) {
	m.DomainFetchesTotal.WithLabelValues(role, string(status)).Inc()
}

func (m *GapMetrics) RecordDroppedRecords(n int) {
	if n > 0 {
		m.DroppedRecordsTotal.WithLabelValues().Add(float64(n))
	}
}

func (m *GapMetrics) RecordAnalysis(outcome string, d time.Duration) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *GapMetrics) RecordOpportunities(n int) {
	m.OpportunitiesPerRun.WithLabelValues().Observe(float64(n))
}

// RecordStorage labels failures by error code so not-found reads are
// distinguishable from backend outages.
func (m *GapMetrics) RecordStorage(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(errors.GetCode(err))
	}
	m.StorageOperationTotal.WithLabelValues(op, result).Inc()
}

func (m *GapMetrics) RequestStarted(method string) {
	m.HTTPActiveRequests.WithLabelValues(method).Inc()
}

func (m *GapMetrics) RequestFinished(method string) {
	m.HTTPActiveRequests.WithLabelValues(method).Dec()
}

// RecordHTTPRequest records one served HTTP request.
func (m *GapMetrics) RecordHTTPRequest(method, path string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *GapMetrics) RecordMessage(topic string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MessagesProcessedTotal.WithLabelValues(topic, result).Inc()
}

//Personal.AI order the ending

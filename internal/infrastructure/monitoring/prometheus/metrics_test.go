package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/KeyGap-Intelligence/internal/application/analysis"
	"github.com/turtacn/KeyGap-Intelligence/internal/application/ranking"
	"github.com/turtacn/KeyGap-Intelligence/internal/infrastructure/provider/dataforseo"
	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

var (
	_ analysis.Metrics   = (*GapMetrics)(nil)
	_ ranking.Metrics    = (*GapMetrics)(nil)
	_ dataforseo.Metrics = (*GapMetrics)(nil)
)

func TestGapMetrics_Record(t *testing.T) {
	c := newTestCollector(t)
	m := NewGapMetrics(c)

	m.RecordProviderRequest("ok", 120*time.Millisecond)
	m.RecordProviderRequest("rate_limited", 10*time.Millisecond)
	m.RecordRetry(string(errors.ErrCodeProviderTransient))
	m.RecordRateLimitWait(50 * time.Millisecond)
	m.RecordDomainFetch(string(analysis.RoleCompetitor), analysis.StatusFailed)
	m.RecordDroppedRecords(3)
	m.RecordDroppedRecords(0)
	m.RecordAnalysis(analysis.OutcomeDegraded, 2*time.Second)
	m.RecordOpportunities(42)
	m.RecordStorage("store", nil)
	m.RecordStorage("load", errors.New(errors.ErrCodeAnalysisNotFound, "missing"))
	m.RecordHTTPRequest("GET", "/api/v1/analyses/:id", 404, time.Millisecond)
	m.RecordMessage("gap.analysis.requested", nil)
	m.RequestStarted("POST")
	m.RequestStarted("POST")
	m.RequestFinished("POST")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_provider_requests_total{outcome="ok"} 1`)
	assert.Contains(t, out, `test_unit_provider_requests_total{outcome="rate_limited"} 1`)
	assert.Contains(t, out, `test_unit_provider_retries_total{code="PRV_002"} 1`)
	assert.Contains(t, out, "test_unit_provider_rate_limit_wait_seconds_count 1")
	assert.Contains(t, out, `test_unit_domain_fetches_total{role="competitor",status="failed"} 1`)
	assert.Contains(t, out, "test_unit_dropped_records_total 3")
	assert.Contains(t, out, `test_unit_analyses_total{outcome="degraded"} 1`)
	assert.Contains(t, out, "test_unit_opportunities_per_analysis_sum 42")
	assert.Contains(t, out, `test_unit_storage_operations_total{operation="store",result="ok"} 1`)
	assert.Contains(t, out, `test_unit_storage_operations_total{operation="load",result="GAP_005"} 1`)
	assert.Contains(t, out, `test_unit_http_requests_total{method="GET",path="/api/v1/analyses/:id",status_code="404"} 1`)
	assert.Contains(t, out, `test_unit_messages_processed_total{result="ok",topic="gap.analysis.requested"} 1`)
	assert.Contains(t, out, `test_unit_http_active_requests{method="POST"} 1`)
}

//Personal.AI order the ending

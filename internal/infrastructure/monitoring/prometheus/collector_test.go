package prometheus

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "finsentry"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestCollector_ExposesRegisteredMetrics(t *testing.T) {
	c := newTestCollector(t)

	counter := c.RegisterCounter("assessments_total", "Assessments", "kind", "status")
	counter.WithLabelValues("basic", "success").Inc()
	counter.WithLabelValues("basic", "success").Add(2)

	hist := c.RegisterHistogram("assessment_duration_seconds", "Duration", nil, "kind")
	hist.WithLabelValues("basic").Observe(0.42)

	gauge := c.RegisterGauge("health_check_status", "Health", "component")
	gauge.WithLabelValues("llama_server").Set(1)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Result().Body)
	out := string(body)
	assert.Contains(t, out, "finsentry_assessments_total")
	assert.Contains(t, out, `kind="basic"`)
	assert.Contains(t, out, "finsentry_assessment_duration_seconds")
	assert.Contains(t, out, "finsentry_health_check_status")
}

func TestCollector_DuplicateRegistrationReturnsExisting(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dup_total", "dup", "label")
	second := c.RegisterCounter("dup_total", "dup", "label")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Result().Body)
	assert.Contains(t, string(body), `finsentry_dup_total{label="a"} 2`)
}

func TestAppMetrics_RecordHelpersDoNotPanic(t *testing.T) {
	m := NewAppMetrics(newTestCollector(t))

	assert.NotPanics(t, func() {
		RecordHTTPRequest(m, "POST", "/api/assess-risk", 200, 120*time.Millisecond)
		RecordAssessment(m, "enhanced", "partial", 3*time.Second)
		RecordLLMCall(m, "assess", true, 2*time.Second, 150, 40)
		m.ChatTurnsTotal.WithLabelValues("help").Inc()
		m.ProfileBuildsTotal.WithLabelValues("success").Inc()
	})
}

func TestNopCollector_IsInert(t *testing.T) {
	m := NewAppMetrics(NewNopCollector())
	assert.NotPanics(t, func() {
		RecordHTTPRequest(m, "GET", "/health", 200, time.Millisecond)
		RecordLLMCall(m, "ask", false, time.Second, 0, 0)
	})
}

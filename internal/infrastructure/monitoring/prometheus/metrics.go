package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Assessment layer
	AssessmentsTotal   CounterVec
	AssessmentDuration HistogramVec
	ProfileBuildsTotal CounterVec

	// Chat layer
	ChatTurnsTotal CounterVec

	// Generation backend
	LLMRequestsTotal   CounterVec
	LLMRequestDuration HistogramVec
	LLMTokensUsed      CounterVec

	// System health
	HealthCheckStatus GaugeVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultLLMDurationBuckets  = []float64{.5, 1, 2, 5, 10, 30, 60, 120, 300}
)

// NewAppMetrics registers all metrics and returns the AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total",
		"Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds",
		"HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.AssessmentsTotal = collector.RegisterCounter("assessments_total",
		"Risk assessments performed", "kind", "status")
	m.AssessmentDuration = collector.RegisterHistogram("assessment_duration_seconds",
		"Risk assessment duration", DefaultLLMDurationBuckets, "kind")
	m.ProfileBuildsTotal = collector.RegisterCounter("profile_builds_total",
		"Unified customer profiles built", "status")

	m.ChatTurnsTotal = collector.RegisterCounter("chat_turns_total",
		"Chat turns routed", "action")

	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total",
		"Generation requests", "operation", "status")
	m.LLMRequestDuration = collector.RegisterHistogram("llm_request_duration_seconds",
		"Generation request duration", DefaultLLMDurationBuckets, "operation")
	m.LLMTokensUsed = collector.RegisterCounter("llm_tokens_total",
		"Tokens consumed by generation requests", "direction")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status",
		"Health check status (1=up, 0=down)", "component")

	return m
}

// RecordHTTPRequest records one served HTTP request. A nil receiver is a
// no-op so callers can leave metrics unwired in tests.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := fmt.Sprintf("%d", statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAssessment records one assessment outcome. kind is "basic" or
// "enhanced"; status is "success", "partial", or "failure".
func RecordAssessment(m *AppMetrics, kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(kind, status).Inc()
	m.AssessmentDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordLLMCall records one generation round-trip.
func RecordLLMCall(m *AppMetrics, operation string, success bool, duration time.Duration, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.LLMRequestsTotal.WithLabelValues(operation, status).Inc()
	m.LLMRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.LLMTokensUsed.WithLabelValues("input").Add(float64(promptTokens))
	m.LLMTokensUsed.WithLabelValues("output").Add(float64(completionTokens))
}

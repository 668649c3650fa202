package handlers

import (
	"net/http"

	"github.com/finsentry/aml-insight/internal/infrastructure/llm"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
	"github.com/finsentry/aml-insight/pkg/types/common"
)

// HealthHandler reports service health. The data source is always considered
// up once the process started (a CSV store fails at startup, not at serve
// time); the generation backend is probed per request.
type HealthHandler struct {
	client  llm.Client
	log     logging.Logger
	metrics *prometheus.AppMetrics
}

// NewHealthHandler constructs a HealthHandler. metrics may be nil.
func NewHealthHandler(client llm.Client, log logging.Logger, metrics *prometheus.AppMetrics) *HealthHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &HealthHandler{client: client, log: log.Named("health_handler"), metrics: metrics}
}

// Check serves GET /health. A down generation backend degrades the service
// instead of failing the check: profile building and rule-based analysis
// still work without it.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	status := common.HealthHealthy
	llamaStatus := "up"

	if err := h.client.Ping(r.Context()); err != nil {
		status = common.HealthDegraded
		llamaStatus = "down"
		h.log.Warn("generation backend health probe failed", logging.Err(err))
	}

	if h.metrics != nil {
		up := 1.0
		if llamaStatus == "down" {
			up = 0
		}
		h.metrics.HealthCheckStatus.WithLabelValues("llama_server").Set(up)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"llama_server": llamaStatus,
	})
}

package handlers

import (
	"net/http"

	"github.com/finsentry/aml-insight/internal/application/assessment"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
)

// AssessRequest is the body of both assessment endpoints.
type AssessRequest struct {
	PartnerID string `json:"partner_id"`
}

// AssessmentHandler serves the basic and enhanced risk assessment endpoints.
type AssessmentHandler struct {
	basic    *assessment.Assessor
	enhanced *assessment.ExplainableAssessor
	log      logging.Logger
}

// NewAssessmentHandler constructs an AssessmentHandler.
func NewAssessmentHandler(basic *assessment.Assessor, enhanced *assessment.ExplainableAssessor, log logging.Logger) *AssessmentHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AssessmentHandler{basic: basic, enhanced: enhanced, log: log.Named("assessment_handler")}
}

// AssessRisk serves POST /api/assess-risk.
func (h *AssessmentHandler) AssessRisk(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if err := checkPartnerID(req.PartnerID); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.basic.Assess(r.Context(), req.PartnerID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	payload := map[string]any{
		"partner_id":   result.PartnerID,
		"risk_score":   result.RiskScore,
		"rationale":    result.Rationale,
		"raw_response": result.RawResponse,
	}
	if result.Warning != "" {
		payload["warning"] = result.Warning
	}
	writeSuccess(w, payload)
}

// AssessRiskEnhanced serves POST /api/assess-risk/enhanced.
func (h *AssessmentHandler) AssessRiskEnhanced(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if err := checkPartnerID(req.PartnerID); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.enhanced.Assess(r.Context(), req.PartnerID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	payload := map[string]any{
		"partner_id":            result.PartnerID,
		"risk_score":            result.RiskScore,
		"rationale":             result.Rationale,
		"feature_contributions": result.FeatureContributions,
		"ucp":                   result.UCP,
		"model_version":         result.ModelVersion,
		"timestamp":             result.AssessedAt,
	}
	if result.Warning != "" {
		payload["warning"] = result.Warning
	}
	writeSuccess(w, payload)
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/finsentry/aml-insight/internal/application/query"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// QuestionRequest is the body of the question endpoint.
type QuestionRequest struct {
	PartnerID string `json:"partner_id"`
	Question  string `json:"question"`
}

// QuestionHandler serves the grounded question-answering endpoint.
type QuestionHandler struct {
	answerer *query.Answerer
	log      logging.Logger
}

// NewQuestionHandler constructs a QuestionHandler.
func NewQuestionHandler(answerer *query.Answerer, log logging.Logger) *QuestionHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &QuestionHandler{answerer: answerer, log: log.Named("question_handler")}
}

// AskQuestion serves POST /api/question.
func (h *QuestionHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if err := checkPartnerID(req.PartnerID); err != nil {
		writeAppError(w, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeAppError(w, errors.InvalidParam("question is required"))
		return
	}

	answer, err := h.answerer.Answer(r.Context(), req.PartnerID, req.Question)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeSuccess(w, map[string]any{
		"partner_id":   answer.PartnerID,
		"question":     answer.Question,
		"answer":       answer.Answer,
		"citations":    answer.Citations,
		"ucp_snapshot": answer.UCPSnapshot,
		"source":       answer.Source,
	})
}

// Package conversation routes free-text chat messages to the assessment and
// question-answering flows, carrying the active partner identifier across
// turns supplied by the caller.
package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/finsentry/aml-insight/internal/application/assessment"
	"github.com/finsentry/aml-insight/internal/application/query"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
	"github.com/finsentry/aml-insight/pkg/errors"
	"github.com/finsentry/aml-insight/pkg/types/common"
)

// Reply actions.
const (
	ActionRiskAssessment = "risk_assessment"
	ActionQuestion       = "question"
	ActionHelp           = "help"
	ActionError          = "error"
)

var (
	uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

	riskKeywords     = []string{"assess", "risk", "fraud", "aml", "evaluate", "check", "analyze", "screening"}
	questionKeywords = []string{"what", "who", "when", "where", "why", "how", "which", "tell me", "show me"}

	markdownStripper = strings.NewReplacer("**", "", "__", "", "`", "", "###", "", "##", "", "# ", "")
)

const helpText = `I can help you with customer risk analysis. Try one of:
- "Assess risk for partner <partner-id>" for a full risk assessment
- "What is the spending of partner <partner-id>?" for a data question
Partner identifiers are UUIDs; I also remember the last one mentioned in this conversation.`

// Turn is one prior message in a conversation. History is caller-supplied in
// chronological order; the router holds no state between calls.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	PartnerID string `json:"partner_id,omitempty"`
}

// Reply is the structured outcome of one routed message. Data carries the
// full assessment or answer payload when a downstream flow ran.
type Reply struct {
	Response  string `json:"response"`
	Action    string `json:"action"`
	PartnerID string `json:"partner_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Router classifies messages by intent and dispatches to the explainable
// assessor or the query answerer.
type Router struct {
	assessor *assessment.ExplainableAssessor
	answerer *query.Answerer
	log      logging.Logger
	metrics  *prometheus.AppMetrics
}

// NewRouter constructs a Router. metrics may be nil.
func NewRouter(assessor *assessment.ExplainableAssessor, answerer *query.Answerer, log logging.Logger, metrics *prometheus.AppMetrics) *Router {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Router{assessor: assessor, answerer: answerer, log: log.Named("conversation_router"), metrics: metrics}
}

// Route resolves the active partner identifier, classifies the message, and
// dispatches. Downstream failures come back as an error-action reply rather
// than a Go error so a chat surface always has something to render.
func (r *Router) Route(ctx context.Context, message string, history []Turn) *Reply {
	partnerID := resolvePartnerID(message, history)
	reply := r.dispatch(ctx, message, partnerID)

	if r.metrics != nil {
		r.metrics.ChatTurnsTotal.WithLabelValues(reply.Action).Inc()
	}
	r.log.Debug("chat turn routed",
		logging.String("action", reply.Action),
		logging.String("partner_id", reply.PartnerID),
		logging.Bool("had_history", len(history) > 0))

	return reply
}

func (r *Router) dispatch(ctx context.Context, message, partnerID string) *Reply {
	switch {
	case hasAny(message, riskKeywords):
		if partnerID == "" {
			return &Reply{Action: ActionHelp, Response: "Please provide a partner identifier for the risk assessment.\n\n" + helpText}
		}
		return r.runAssessment(ctx, partnerID)

	case isQuestion(message):
		if partnerID == "" {
			return &Reply{Action: ActionHelp, Response: "Please provide a partner identifier so I know whom the question is about.\n\n" + helpText}
		}
		return r.runQuestion(ctx, partnerID, message)

	case partnerID != "":
		// An identifier with no recognizable intent reads as a data question.
		return r.runQuestion(ctx, partnerID, message)

	default:
		return &Reply{Action: ActionHelp, Response: helpText}
	}
}

func (r *Router) runAssessment(ctx context.Context, partnerID string) *Reply {
	result, err := r.assessor.Assess(ctx, partnerID)
	if err != nil {
		return errorReply(partnerID, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk assessment for partner %s:\n", partnerID)
	if result.RiskScore != nil {
		fmt.Fprintf(&sb, "Risk score: %d (%s)\n", *result.RiskScore, common.BandRiskScore(*result.RiskScore))
	} else {
		fmt.Fprintf(&sb, "Risk score: unavailable (%s)\n", result.Warning)
	}
	if result.Rationale != "" {
		fmt.Fprintf(&sb, "%s", stripMarkdown(result.Rationale))
	}

	return &Reply{
		Action:    ActionRiskAssessment,
		PartnerID: partnerID,
		Response:  strings.TrimSpace(sb.String()),
		Data:      result,
	}
}

func (r *Router) runQuestion(ctx context.Context, partnerID, message string) *Reply {
	answer, err := r.answerer.Answer(ctx, partnerID, message)
	if err != nil {
		return errorReply(partnerID, err)
	}
	return &Reply{
		Action:    ActionQuestion,
		PartnerID: partnerID,
		Response:  stripMarkdown(answer.Answer),
		Data:      answer,
	}
}

func errorReply(partnerID string, err error) *Reply {
	response := "Something went wrong handling that request."
	switch {
	case errors.IsNotFound(err):
		response = fmt.Sprintf("I could not find a partner with identifier %s.", partnerID)
	case errors.IsCode(err, errors.ErrCodeLLMUnavailable):
		response = "The analysis service is currently unavailable. Please try again later."
	}
	return &Reply{Action: ActionError, PartnerID: partnerID, Response: response}
}

// resolvePartnerID looks for a UUID in the message first, then walks the
// history newest-first, preferring an explicit turn identifier over one
// embedded in turn content. The most recent identifier-bearing turn wins.
func resolvePartnerID(message string, history []Turn) string {
	if id := uuidPattern.FindString(message); id != "" {
		return strings.ToLower(id)
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].PartnerID != "" && uuidPattern.MatchString(history[i].PartnerID) {
			return strings.ToLower(history[i].PartnerID)
		}
		if id := uuidPattern.FindString(history[i].Content); id != "" {
			return strings.ToLower(id)
		}
	}
	return ""
}

func hasAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isQuestion(message string) bool {
	if strings.Contains(message, "?") {
		return true
	}
	return hasAny(message, questionKeywords)
}

func stripMarkdown(text string) string {
	return strings.TrimSpace(markdownStripper.Replace(text))
}

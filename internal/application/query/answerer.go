// Package query answers free-form questions about a partner by grounding the
// generation service in a keyword-filtered slice of the customer profile.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	appprofile "github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/domain/profile"
	"github.com/finsentry/aml-insight/internal/infrastructure/llm"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
	"github.com/finsentry/aml-insight/pkg/types/common"
)

const answererSystemPrompt = "You are an AML analyst assistant. Answer the question directly using " +
	"only the customer data provided. Do not produce a general profile or restate fields the " +
	"question did not ask about. If the data does not contain the answer, say so."

// Keyword groups selecting which profile sections go into the prompt context.
var (
	financialKeywords = []string{"spending", "spend", "transaction", "financial", "amount", "balance", "money", "velocity", "transfer"}
	identityKeywords  = []string{"name", "identity", "profile", "who", "address", "phone", "contact", "kyc", "onboard"}
	riskKeywords      = []string{"risk", "fraud", "alert", "suspicious", "score", "aml"}
)

// Citation records one snapshot field quoted by the answer: the dotted field
// path and the rendered value that appeared in the answer text.
type Citation struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Answer is the grounded reply to one question. Citations name only snapshot
// fields whose values actually appear in the answer text.
type Answer struct {
	PartnerID   string         `json:"partner_id"`
	Question    string         `json:"question"`
	Answer      string         `json:"answer"`
	Citations   []Citation     `json:"citations"`
	UCPSnapshot map[string]any `json:"ucp_snapshot"`
	Source      string         `json:"source"`
	AnsweredAt  time.Time      `json:"answered_at"`
}

// Answerer grounds question answering in the profile builder and the
// generation service.
type Answerer struct {
	builder *appprofile.Builder
	client  llm.Client
	log     logging.Logger
	metrics *prometheus.AppMetrics
}

// NewAnswerer constructs an Answerer. metrics may be nil.
func NewAnswerer(builder *appprofile.Builder, client llm.Client, log logging.Logger, metrics *prometheus.AppMetrics) *Answerer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Answerer{builder: builder, client: client, log: log.Named("query_answerer"), metrics: metrics}
}

// Answer builds the profile, filters it down to the sections the question
// plausibly touches, and asks the generation service for a grounded reply.
// The filtered snapshot is returned alongside the answer so callers can see
// exactly what context the reply was grounded in.
func (a *Answerer) Answer(ctx context.Context, partnerID, question string) (*Answer, error) {
	started := time.Now()

	ucp, err := a.builder.Build(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	snapshot := buildSnapshot(ucp, question)

	contextJSON, err := common.MarshalSanitized(snapshot)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Customer data:\n%s\n\nQuestion: %s", contextJSON, question)
	resp, err := a.client.Generate(ctx, llm.Request{
		System: answererSystemPrompt,
		Prompt: prompt,
	})
	promptTokens, completionTokens := respTokens(resp)
	prometheus.RecordLLMCall(a.metrics, "question", err == nil, time.Since(started), promptTokens, completionTokens)
	if err != nil {
		return nil, err
	}

	answerText := strings.TrimSpace(resp.Content)
	result := &Answer{
		PartnerID:   partnerID,
		Question:    question,
		Answer:      answerText,
		Citations:   extractCitations(snapshot, answerText),
		UCPSnapshot: snapshot,
		Source:      "llm",
		AnsweredAt:  time.Now().UTC(),
	}

	a.log.Info("question answered",
		logging.String("partner_id", partnerID),
		logging.Int("citations", len(result.Citations)),
		logging.Duration("elapsed", time.Since(started)))

	return result, nil
}

// buildSnapshot filters the profile to the sections matching the question's
// keywords. Unmatched questions fall back to identity plus aggregates; the
// canonical identifier is always present.
func buildSnapshot(ucp *profile.UCP, question string) map[string]any {
	q := strings.ToLower(question)

	snapshot := map[string]any{"canonical_id": ucp.CanonicalID}

	wantFinancial := containsAny(q, financialKeywords)
	wantIdentity := containsAny(q, identityKeywords)
	wantRisk := containsAny(q, riskKeywords)
	if !wantFinancial && !wantIdentity && !wantRisk {
		wantFinancial = true
		wantIdentity = true
	}

	if wantIdentity {
		snapshot["identity"] = ucp.Identity
		snapshot["static_profile"] = ucp.StaticProfile
	}
	if wantFinancial {
		snapshot["financial_aggregates"] = ucp.FinancialAggregates
		snapshot["recent_transactions"] = ucp.RecentTransactions
	}
	if wantRisk && ucp.RiskMetadata != nil {
		snapshot["risk_metadata"] = ucp.RiskMetadata
	}

	return snapshot
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractCitations walks the snapshot and returns the leaf fields whose
// rendered values occur verbatim in the answer text, each as a field/value
// pair. Only fields that were actually in the prompt context can ever be
// cited.
func extractCitations(snapshot map[string]any, answer string) []Citation {
	sanitized := common.Sanitize(snapshot)
	fields, ok := sanitized.(map[string]any)
	if !ok {
		return nil
	}

	var citations []Citation
	walkLeaves("", fields, func(path string, value any) {
		text := renderValue(value)
		if text == "" || len(text) < 2 {
			return
		}
		if strings.Contains(answer, text) {
			citations = append(citations, Citation{Field: path, Value: text})
		}
	})
	return citations
}

func walkLeaves(prefix string, node any, visit func(path string, value any)) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			walkLeaves(path, child, visit)
		}
	case []any:
		for i, child := range v {
			walkLeaves(fmt.Sprintf("%s[%d]", prefix, i), child, visit)
		}
	case nil:
		return
	default:
		visit(prefix, v)
	}
}

func renderValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func respTokens(resp *llm.Response) (int, int) {
	if resp == nil {
		return 0, 0
	}
	return resp.PromptTokens, resp.CompletionTokens
}

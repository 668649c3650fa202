package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/infrastructure/llm"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
	"github.com/finsentry/aml-insight/pkg/errors"
)

const assessorSystemPrompt = "You are an AML risk analyst. Respond with exactly two lines:\n" +
	"RISK_SCORE: <integer 0-100>\n" +
	"RATIONALE: <one short paragraph explaining the score>"

// ParseWarning marks a response whose score could not be extracted.
const ParseWarning = "risk score could not be parsed from the generation response"

// Result is the outcome of a basic assessment. RiskScore is nil when the
// response yielded no usable score; Warning carries the reason.
type Result struct {
	PartnerID   string    `json:"partner_id"`
	RiskScore   *int      `json:"risk_score"`
	Rationale   string    `json:"rationale"`
	RawResponse string    `json:"raw_response"`
	Warning     string    `json:"warning,omitempty"`
	AssessedAt  time.Time `json:"assessed_at"`
}

// Assessor runs the basic flow: flat summary in, score and rationale out.
type Assessor struct {
	resolver *profile.Resolver
	client   llm.Client
	log      logging.Logger
	metrics  *prometheus.AppMetrics
}

// NewAssessor constructs an Assessor. metrics may be nil.
func NewAssessor(resolver *profile.Resolver, client llm.Client, log logging.Logger, metrics *prometheus.AppMetrics) *Assessor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Assessor{
		resolver: resolver,
		client:   client,
		log:      log.Named("risk_assessor"),
		metrics:  metrics,
	}
}

// Assess summarizes the partner, asks the generation service for a score, and
// parses the reply. A connection failure is surfaced as ErrCodeLLMUnavailable
// with no retry; an unparseable score comes back as a result with a nil score
// and a warning, never a silent default.
func (a *Assessor) Assess(ctx context.Context, partnerID string) (*Result, error) {
	started := time.Now()

	summary, err := a.resolver.Summarize(ctx, partnerID)
	if err != nil {
		prometheus.RecordAssessment(a.metrics, "basic", "failure", time.Since(started))
		return nil, err
	}

	prompt := fmt.Sprintf("Assess the money-laundering and fraud risk of the following customer.\n\n%s", summary)

	resp, err := a.client.Generate(ctx, llm.Request{
		System: assessorSystemPrompt,
		Prompt: prompt,
	})
	promptTokens, completionTokens := tokensOf(resp)
	prometheus.RecordLLMCall(a.metrics, "assess_basic", err == nil, time.Since(started), promptTokens, completionTokens)
	if err != nil {
		prometheus.RecordAssessment(a.metrics, "basic", "failure", time.Since(started))
		return nil, err
	}

	parsed := ParseAssessment(resp.Content)
	result := &Result{
		PartnerID:   partnerID,
		RiskScore:   parsed.Score,
		Rationale:   parsed.Rationale,
		RawResponse: resp.Content,
		AssessedAt:  time.Now().UTC(),
	}

	status := "success"
	if parsed.Score == nil {
		result.Warning = ParseWarning
		status = "partial"
		a.log.Warn("generation response carried no parseable score",
			logging.String("partner_id", partnerID))
	}
	prometheus.RecordAssessment(a.metrics, "basic", status, time.Since(started))

	a.log.Info("basic assessment complete",
		logging.String("partner_id", partnerID),
		logging.Bool("score_parsed", parsed.Score != nil),
		logging.Duration("elapsed", time.Since(started)))

	return result, nil
}

// IsUpstreamFailure reports whether err is a generation-backend outage.
func IsUpstreamFailure(err error) bool {
	return errors.IsCode(err, errors.ErrCodeLLMUnavailable)
}

func tokensOf(resp *llm.Response) (int, int) {
	if resp == nil {
		return 0, 0
	}
	return resp.PromptTokens, resp.CompletionTokens
}

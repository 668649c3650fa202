package assessment

import (
	"context"
	"fmt"
	"math"
	"time"

	appprofile "github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/domain/profile"
	"github.com/finsentry/aml-insight/internal/infrastructure/llm"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
)

// Fixed thresholds for the rule-based contributions. They are deliberately
// constants rather than configuration so that classifications stay comparable
// across deployments.
const (
	velocityMediumThreshold = 10.0 // tx/hour
	velocityHighThreshold   = 20.0
	spendRatioMedium        = 0.5 // 30d spending as a share of 90d
	spendRatioHigh          = 0.75
	maxTxAvgMultiple        = 3.0 // single transaction vs 90d average
)

// UnavailableWarning marks a partial result produced while the generation
// service was down.
const UnavailableWarning = "generation service unavailable; rule-based contributions only"

const explainableSystemPrompt = "You are an AML risk analyst reviewing a full customer profile. " +
	"Respond with exactly two lines:\n" +
	"RISK_SCORE: <integer 0-100>\n" +
	"RATIONALE: <one short paragraph explaining the score>"

// EnhancedResult is the outcome of an explainable assessment. The UCP carries
// the same assessment written into its risk metadata.
type EnhancedResult struct {
	PartnerID            string                          `json:"partner_id"`
	RiskScore            *int                            `json:"risk_score"`
	Rationale            string                          `json:"rationale"`
	RawResponse          string                          `json:"raw_response,omitempty"`
	FeatureContributions map[string]profile.Contribution `json:"feature_contributions"`
	UCP                  *profile.UCP                    `json:"ucp"`
	ModelVersion         string                          `json:"model_version"`
	AssessedAt           time.Time                       `json:"assessed_at"`
	Warning              string                          `json:"warning,omitempty"`
}

// ExplainableAssessor runs the enhanced flow: full profile, deterministic
// feature contributions, and a generation-backed score merged on top.
type ExplainableAssessor struct {
	builder      *appprofile.Builder
	client       llm.Client
	modelVersion string
	log          logging.Logger
	metrics      *prometheus.AppMetrics
}

// NewExplainableAssessor constructs an ExplainableAssessor. metrics may be nil.
func NewExplainableAssessor(builder *appprofile.Builder, client llm.Client, modelVersion string, log logging.Logger, metrics *prometheus.AppMetrics) *ExplainableAssessor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ExplainableAssessor{
		builder:      builder,
		client:       client,
		modelVersion: modelVersion,
		log:          log.Named("explainable_assessor"),
		metrics:      metrics,
	}
}

// Assess builds the full profile, derives rule-based contributions, and asks
// the generation service for a score and narrative. The contributions never
// depend on the generation output: when the backend is down the method still
// returns them as a partial result instead of failing, and the profile's risk
// metadata is written either way.
func (e *ExplainableAssessor) Assess(ctx context.Context, partnerID string) (*EnhancedResult, error) {
	started := time.Now()

	ucp, err := e.builder.Build(ctx, partnerID)
	if err != nil {
		prometheus.RecordAssessment(e.metrics, "enhanced", "failure", time.Since(started))
		return nil, err
	}

	contributions := ComputeContributions(ucp.FinancialAggregates)

	result := &EnhancedResult{
		PartnerID:            partnerID,
		FeatureContributions: contributions,
		UCP:                  ucp,
		ModelVersion:         e.modelVersion,
		AssessedAt:           time.Now().UTC(),
	}

	prompt := fmt.Sprintf("Assess the money-laundering and fraud risk of the customer described below.\n\n%s", ucp.Text())
	resp, err := e.client.Generate(ctx, llm.Request{
		System: explainableSystemPrompt,
		Prompt: prompt,
	})
	promptTokens, completionTokens := tokensOf(resp)
	prometheus.RecordLLMCall(e.metrics, "assess_enhanced", err == nil, time.Since(started), promptTokens, completionTokens)

	switch {
	case err != nil && IsUpstreamFailure(err):
		result.Warning = UnavailableWarning
		result.Rationale = "Generation service unavailable; see feature contributions."
		e.log.Warn("generation backend down, returning rule-based partial result",
			logging.String("partner_id", partnerID), logging.Err(err))
		prometheus.RecordAssessment(e.metrics, "enhanced", "partial", time.Since(started))
	case err != nil:
		prometheus.RecordAssessment(e.metrics, "enhanced", "failure", time.Since(started))
		return nil, err
	default:
		parsed := ParseAssessment(resp.Content)
		result.RiskScore = parsed.Score
		result.Rationale = parsed.Rationale
		result.RawResponse = resp.Content
		status := "success"
		if parsed.Score == nil {
			result.Warning = ParseWarning
			status = "partial"
		}
		prometheus.RecordAssessment(e.metrics, "enhanced", status, time.Since(started))
	}

	ucp.RiskMetadata = &profile.RiskMetadata{
		RiskScore:            result.RiskScore,
		ModelVersion:         e.modelVersion,
		AssessedAt:           result.AssessedAt,
		Explanation:          result.Rationale,
		FeatureContributions: contributions,
	}

	e.log.Info("enhanced assessment complete",
		logging.String("partner_id", partnerID),
		logging.Bool("score_parsed", result.RiskScore != nil),
		logging.Int("contributions", len(contributions)),
		logging.Duration("elapsed", time.Since(started)))

	return result, nil
}

// ComputeContributions classifies each financial aggregate against the fixed
// thresholds. The result is deterministic for a given set of aggregates and is
// never empty: quiet profiles carry a baseline activity entry.
func ComputeContributions(agg profile.Aggregates) map[string]profile.Contribution {
	out := make(map[string]profile.Contribution)

	out["transaction_activity"] = profile.Contribution{
		Value:  float64(agg.TxCount90d),
		Impact: profile.ImpactLow,
		Reason: fmt.Sprintf("%d transactions observed in the 90-day window", agg.TxCount90d),
	}

	switch {
	case agg.VelocityTxPerHour > velocityHighThreshold:
		out["transaction_velocity"] = profile.Contribution{
			Value:  agg.VelocityTxPerHour,
			Impact: profile.ImpactHigh,
			Reason: fmt.Sprintf("velocity %.2f tx/hour exceeds %.0f", agg.VelocityTxPerHour, velocityHighThreshold),
		}
	case agg.VelocityTxPerHour > velocityMediumThreshold:
		out["transaction_velocity"] = profile.Contribution{
			Value:  agg.VelocityTxPerHour,
			Impact: profile.ImpactMedium,
			Reason: fmt.Sprintf("velocity %.2f tx/hour exceeds %.0f", agg.VelocityTxPerHour, velocityMediumThreshold),
		}
	case agg.VelocityTxPerHour > 0:
		out["transaction_velocity"] = profile.Contribution{
			Value:  agg.VelocityTxPerHour,
			Impact: profile.ImpactLow,
			Reason: "transaction velocity within normal bounds",
		}
	}

	if agg.TotalSpending90d != 0 {
		ratio := agg.TotalSpending30d / agg.TotalSpending90d
		c := profile.Contribution{Value: ratio}
		switch {
		case ratio > spendRatioHigh:
			c.Impact = profile.ImpactHigh
			c.Reason = fmt.Sprintf("%.0f%% of 90-day spending happened in the last 30 days", ratio*100)
		case ratio > spendRatioMedium:
			c.Impact = profile.ImpactMedium
			c.Reason = fmt.Sprintf("%.0f%% of 90-day spending happened in the last 30 days", ratio*100)
		default:
			c.Impact = profile.ImpactLow
			c.Reason = "spending spread evenly across the 90-day window"
		}
		out["spending_concentration"] = c
	}

	if agg.AvgTxValue90d != nil && *agg.AvgTxValue90d != 0 {
		avg := math.Abs(*agg.AvgTxValue90d)
		c := profile.Contribution{Value: agg.MaxTxAmount, Impact: profile.ImpactLow,
			Reason: "largest transaction in line with the 90-day average"}
		if agg.MaxTxAmount > maxTxAvgMultiple*avg {
			c.Impact = profile.ImpactHigh
			c.Reason = fmt.Sprintf("largest transaction %.2f is over %.0fx the 90-day average %.2f",
				agg.MaxTxAmount, maxTxAvgMultiple, avg)
		}
		out["max_transaction_size"] = c
	}

	return out
}

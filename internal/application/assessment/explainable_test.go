package assessment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appprofile "github.com/finsentry/aml-insight/internal/application/profile"
	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/domain/profile"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/testutil"
	"github.com/finsentry/aml-insight/pkg/errors"
)

func newExplainable(store *testutil.FakeStore, client *testutil.FakeLLM) *ExplainableAssessor {
	builder := appprofile.NewBuilder(store, logging.NewNopLogger(), nil)
	return NewExplainableAssessor(builder, client, "explainable-v1", logging.NewNopLogger(), nil)
}

func floatPtr(f float64) *float64 { return &f }

func TestExplainableAssess_MergesScoreAndContributions(t *testing.T) {
	store := seededStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store.Transactions["ACC-1"] = []partner.Transaction{
		{AccountID: "ACC-1", Date: base.AddDate(0, 0, -10), Amount: 100, Currency: "EUR", Direction: "debit"},
		{AccountID: "ACC-1", Date: base, Amount: 200, Currency: "EUR", Direction: "debit"},
	}
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 55\nRATIONALE: Concentrated recent spending."}

	result, err := newExplainable(store, client).Assess(context.Background(), testPartnerID)
	require.NoError(t, err)

	require.NotNil(t, result.RiskScore)
	assert.Equal(t, 55, *result.RiskScore)
	assert.Equal(t, "Concentrated recent spending.", result.Rationale)
	assert.Equal(t, "explainable-v1", result.ModelVersion)
	assert.NotEmpty(t, result.FeatureContributions)

	require.NotNil(t, result.UCP)
	require.NotNil(t, result.UCP.RiskMetadata, "assessment is written back into the profile")
	assert.Equal(t, 55, *result.UCP.RiskMetadata.RiskScore)
	assert.Equal(t, "explainable-v1", result.UCP.RiskMetadata.ModelVersion)
	assert.Equal(t, result.FeatureContributions, result.UCP.RiskMetadata.FeatureContributions)
}

func TestExplainableAssess_PromptEmbedsFullProfile(t *testing.T) {
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 5\nRATIONALE: quiet"}

	_, err := newExplainable(seededStore(), client).Assess(context.Background(), testPartnerID)
	require.NoError(t, err)

	assert.Contains(t, client.LastRequest.Prompt, "=== UNIFIED CUSTOMER PROFILE ===")
	assert.Contains(t, client.LastRequest.Prompt, "FINANCIAL AGGREGATES")
}

func TestExplainableAssess_PartialResultWhenBackendDown(t *testing.T) {
	client := &testutil.FakeLLM{Err: errors.LLMUnavailable(context.DeadlineExceeded)}

	result, err := newExplainable(seededStore(), client).Assess(context.Background(), testPartnerID)
	require.NoError(t, err, "a generation outage degrades, it does not fail")

	assert.Nil(t, result.RiskScore)
	assert.Equal(t, UnavailableWarning, result.Warning)
	assert.NotEmpty(t, result.FeatureContributions, "rule-based analysis survives the outage")
	require.NotNil(t, result.UCP.RiskMetadata)
	assert.Nil(t, result.UCP.RiskMetadata.RiskScore)
}

func TestExplainableAssess_UnknownPartner(t *testing.T) {
	client := &testutil.FakeLLM{Response: "RISK_SCORE: 5\nRATIONALE: quiet"}

	_, err := newExplainable(seededStore(), client).Assess(context.Background(), "22222222-2222-2222-2222-222222222222")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePartnerNotFound))
	assert.Zero(t, client.Calls)
}

func TestComputeContributions_NeverEmpty(t *testing.T) {
	out := ComputeContributions(profile.Aggregates{})

	require.NotEmpty(t, out)
	baseline, ok := out["transaction_activity"]
	require.True(t, ok)
	assert.Equal(t, profile.ImpactLow, baseline.Impact)
}

func TestComputeContributions_VelocityThresholds(t *testing.T) {
	cases := []struct {
		velocity float64
		impact   string
	}{
		{25, profile.ImpactHigh},
		{15, profile.ImpactMedium},
		{2, profile.ImpactLow},
	}
	for _, tc := range cases {
		out := ComputeContributions(profile.Aggregates{VelocityTxPerHour: tc.velocity})
		require.Contains(t, out, "transaction_velocity")
		assert.Equal(t, tc.impact, out["transaction_velocity"].Impact, "velocity %.0f", tc.velocity)
	}
}

func TestComputeContributions_SpendingConcentration(t *testing.T) {
	out := ComputeContributions(profile.Aggregates{
		TotalSpending30d: 800, TotalSpending90d: 1000,
	})
	require.Contains(t, out, "spending_concentration")
	assert.Equal(t, profile.ImpactHigh, out["spending_concentration"].Impact)

	out = ComputeContributions(profile.Aggregates{
		TotalSpending30d: 600, TotalSpending90d: 1000,
	})
	assert.Equal(t, profile.ImpactMedium, out["spending_concentration"].Impact)

	out = ComputeContributions(profile.Aggregates{
		TotalSpending30d: 200, TotalSpending90d: 1000,
	})
	assert.Equal(t, profile.ImpactLow, out["spending_concentration"].Impact)
}

func TestComputeContributions_OutsizedTransaction(t *testing.T) {
	out := ComputeContributions(profile.Aggregates{
		AvgTxValue90d: floatPtr(100),
		MaxTxAmount:   500,
	})
	require.Contains(t, out, "max_transaction_size")
	assert.Equal(t, profile.ImpactHigh, out["max_transaction_size"].Impact)

	out = ComputeContributions(profile.Aggregates{
		AvgTxValue90d: floatPtr(100),
		MaxTxAmount:   150,
	})
	assert.Equal(t, profile.ImpactLow, out["max_transaction_size"].Impact)
}

func TestComputeContributions_Deterministic(t *testing.T) {
	agg := profile.Aggregates{
		TotalSpending30d: 900, TotalSpending90d: 1000,
		VelocityTxPerHour: 30,
		AvgTxValue90d:     floatPtr(50),
		MaxTxAmount:       400,
		TxCount90d:        12,
	}
	assert.Equal(t, ComputeContributions(agg), ComputeContributions(agg))
}

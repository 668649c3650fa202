package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssessment_LabelledFormat(t *testing.T) {
	parsed := ParseAssessment("RISK_SCORE: 72\nRATIONALE: High velocity and recent large transfers.")

	require.NotNil(t, parsed.Score)
	assert.Equal(t, 72, *parsed.Score)
	assert.Equal(t, "High velocity and recent large transfers.", parsed.Rationale)
}

func TestParseAssessment_LabelCaseInsensitive(t *testing.T) {
	parsed := ParseAssessment("risk_score:  5\nrationale: quiet profile")

	require.NotNil(t, parsed.Score)
	assert.Equal(t, 5, *parsed.Score)
	assert.Equal(t, "quiet profile", parsed.Rationale)
}

func TestParseAssessment_ClampsLabelledScore(t *testing.T) {
	parsed := ParseAssessment("RISK_SCORE: 150\nRATIONALE: overshoot")

	require.NotNil(t, parsed.Score)
	assert.Equal(t, 100, *parsed.Score)
}

func TestParseAssessment_FallbackFirstInRangeInteger(t *testing.T) {
	parsed := ParseAssessment("The score is around 850, call it 65 out of 100.")

	require.NotNil(t, parsed.Score)
	assert.Equal(t, 65, *parsed.Score, "out-of-range 850 is skipped, 65 is the first candidate")
}

func TestParseAssessment_NoCandidateReportsNilScore(t *testing.T) {
	raw := "I cannot determine a score for this customer."
	parsed := ParseAssessment(raw)

	assert.Nil(t, parsed.Score, "missing score must stay absent, never defaulted")
	assert.Equal(t, raw, parsed.Rationale)
}

func TestParseAssessment_RationaleFallsBackToRawText(t *testing.T) {
	parsed := ParseAssessment("Score 40. Elevated due to burst activity.")

	require.NotNil(t, parsed.Score)
	assert.Equal(t, 40, *parsed.Score)
	assert.Equal(t, "Score 40. Elevated due to burst activity.", parsed.Rationale)
}

func TestParseAssessment_MultilineRationale(t *testing.T) {
	parsed := ParseAssessment("RISK_SCORE: 30\nRATIONALE: Line one.\nLine two.")

	require.NotNil(t, parsed.Score)
	assert.Equal(t, "Line one.\nLine two.", parsed.Rationale)
}

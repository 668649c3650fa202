// Package assessment implements the risk scoring flows: a basic assessor over
// the flat partner summary and an explainable assessor over the full profile.
package assessment

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scorePattern     = regexp.MustCompile(`(?i)RISK_SCORE:\s*(\d+)`)
	rationalePattern = regexp.MustCompile(`(?is)RATIONALE:\s*(.+)`)
	integerPattern   = regexp.MustCompile(`\b(\d{1,3})\b`)
)

// ParsedAssessment is the structured view of a generation response. Score is
// nil when no usable numeric token was found; Rationale always carries text,
// falling back to the raw response.
type ParsedAssessment struct {
	Score     *int
	Rationale string
}

// ParseAssessment extracts a risk score and rationale from raw generation
// output. It first looks for the labelled RISK_SCORE/RATIONALE format the
// prompts ask for, then falls back to the first integer in [0,100] anywhere in
// the text. Extracted scores are clamped to [0,100]. When no candidate exists
// the score stays nil; a parse failure is reported, never defaulted.
func ParseAssessment(raw string) ParsedAssessment {
	parsed := ParsedAssessment{Rationale: strings.TrimSpace(raw)}

	if m := rationalePattern.FindStringSubmatch(raw); m != nil {
		if text := strings.TrimSpace(m[1]); text != "" {
			parsed.Rationale = text
		}
	}

	if m := scorePattern.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			score := clampScore(n)
			parsed.Score = &score
			return parsed
		}
	}

	// No labelled score; scan for the first in-range integer.
	for _, m := range integerPattern.FindAllStringSubmatch(raw, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 100 {
			continue
		}
		parsed.Score = &n
		return parsed
	}

	return parsed
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

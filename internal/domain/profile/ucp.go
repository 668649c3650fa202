// Package profile defines the Unified Customer Profile (UCP): the per-request
// view of a partner assembled from identity, account, and transaction data.
// Profiles are built on demand and never persisted.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/finsentry/aml-insight/internal/domain/partner"
)

// UCP is the Unified Customer Profile. It is assembled per request by the
// application-layer builder and carried through assessment, question
// answering, and chat flows.
type UCP struct {
	CanonicalID string    `json:"canonical_id"`
	CreatedAt   time.Time `json:"created_at"`

	Identity      Identity      `json:"identity"`
	StaticProfile StaticProfile `json:"static_profile"`
	AccountData   AccountData   `json:"account_data"`

	FinancialAggregates Aggregates `json:"financial_aggregates"`

	// RiskMetadata is nil until an explainable assessment writes it back.
	RiskMetadata *RiskMetadata `json:"risk_metadata,omitempty"`

	OnboardingNotes string `json:"onboarding_notes"`

	// RecentTransactions holds the most recent transactions, newest first,
	// capped at RecentTransactionLimit.
	RecentTransactions []partner.Transaction `json:"recent_transactions"`
}

// RecentTransactionLimit caps the transaction sample carried in the profile.
const RecentTransactionLimit = 5

// Identity is the resolved canonical identity of the partner.
type Identity struct {
	CanonicalID  string     `json:"canonical_id"`
	Name         string     `json:"name"`
	KYCStatus    string     `json:"kyc_status"`
	OnboardedAt  *time.Time `json:"onboarded_at"`
	IndustryCode string     `json:"industry_code"`
	ClassCode    string     `json:"class_code"`
}

// StaticProfile carries the demographic attributes from the partner row.
type StaticProfile struct {
	Gender    string     `json:"gender"`
	BirthYear int        `json:"birth_year"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	OpenDate  *time.Time `json:"open_date"`
	CloseDate *time.Time `json:"close_date"`
}

// AccountData summarises the accounts reachable from the partner's business
// relationships.
type AccountData struct {
	AccountCount int               `json:"account_count"`
	Status       string            `json:"status"`
	Accounts     []partner.Account `json:"accounts"`
}

// Aggregates holds the windowed financial aggregates. Windows are anchored
// at the latest observed transaction date, not at wall-clock time, so that a
// static data export keeps producing stable, non-zero values.
type Aggregates struct {
	TotalSpending30d float64 `json:"total_spending_30d"`
	TotalSpending90d float64 `json:"total_spending_90d"`

	// AvgTxValue90d is nil when the 90-day window holds no transactions.
	AvgTxValue90d *float64 `json:"avg_tx_value_90d"`

	// VelocityTxPerHour is the 30-day transaction count divided by the
	// observed time span in hours. Zero when fewer than two transactions
	// fall in the window.
	VelocityTxPerHour float64 `json:"velocity_tx_per_hour"`

	TxCount30d int `json:"tx_count_30d"`
	TxCount90d int `json:"tx_count_90d"`

	MaxTxAmount float64 `json:"max_tx_amount"`
	MinTxAmount float64 `json:"min_tx_amount"`

	// AnchorDate is the latest observed transaction date the windows are
	// anchored at; nil when the partner has no transactions at all.
	AnchorDate *time.Time `json:"anchor_date"`
}

// RiskMetadata is written back into the profile by the explainable assessor.
type RiskMetadata struct {
	// RiskScore is nil when the generation output could not be parsed or
	// the generation service was unavailable.
	RiskScore *int `json:"risk_score"`

	ModelVersion string    `json:"model_version"`
	AssessedAt   time.Time `json:"assessed_at"`
	Explanation  string    `json:"explanation"`

	// FeatureContributions is never empty once an assessment ran; quiet
	// profiles carry a baseline entry.
	FeatureContributions map[string]Contribution `json:"feature_contributions"`
}

// Contribution is one deterministic, rule-derived feature contribution.
type Contribution struct {
	Value  float64 `json:"value"`
	Impact string  `json:"impact"`
	Reason string  `json:"reason"`
}

// Contribution impact levels.
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *f)
}

// Text renders the profile as the plain-text block handed to the generation
// model. The layout is stable so prompts stay cache-friendly across requests.
func (u *UCP) Text() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "=== UNIFIED CUSTOMER PROFILE ===\n")
	fmt.Fprintf(&sb, "Canonical ID: %s\n", u.CanonicalID)
	fmt.Fprintf(&sb, "Created At: %s\n\n", u.CreatedAt.Format(time.RFC3339))

	fmt.Fprintf(&sb, "--- IDENTITY ---\n")
	fmt.Fprintf(&sb, "Name: %s\n", u.Identity.Name)
	fmt.Fprintf(&sb, "KYC Status: %s\n", u.Identity.KYCStatus)
	fmt.Fprintf(&sb, "Onboarded: %s\n", formatDate(u.Identity.OnboardedAt))
	fmt.Fprintf(&sb, "Industry Code: %s\n", valueOrNA(u.Identity.IndustryCode))
	fmt.Fprintf(&sb, "Class Code: %s\n\n", valueOrNA(u.Identity.ClassCode))

	fmt.Fprintf(&sb, "--- STATIC PROFILE ---\n")
	fmt.Fprintf(&sb, "Gender: %s\n", valueOrNA(u.StaticProfile.Gender))
	if u.StaticProfile.BirthYear > 0 {
		fmt.Fprintf(&sb, "Birth Year: %d\n", u.StaticProfile.BirthYear)
	} else {
		fmt.Fprintf(&sb, "Birth Year: N/A\n")
	}
	fmt.Fprintf(&sb, "Address: %s\n", valueOrNA(u.StaticProfile.Address))
	fmt.Fprintf(&sb, "Phone: %s\n\n", valueOrNA(u.StaticProfile.Phone))

	fmt.Fprintf(&sb, "--- ACCOUNT DATA ---\n")
	fmt.Fprintf(&sb, "Account Count: %d\n", u.AccountData.AccountCount)
	fmt.Fprintf(&sb, "Account Status: %s\n\n", valueOrNA(u.AccountData.Status))

	agg := u.FinancialAggregates
	fmt.Fprintf(&sb, "--- FINANCIAL AGGREGATES ---\n")
	fmt.Fprintf(&sb, "Total Spending (30d): %.2f\n", agg.TotalSpending30d)
	fmt.Fprintf(&sb, "Total Spending (90d): %.2f\n", agg.TotalSpending90d)
	fmt.Fprintf(&sb, "Avg Transaction Value (90d): %s\n", formatOptFloat(agg.AvgTxValue90d))
	fmt.Fprintf(&sb, "Transaction Velocity (per hour, 30d): %.4f\n", agg.VelocityTxPerHour)
	fmt.Fprintf(&sb, "Transaction Count (30d): %d\n", agg.TxCount30d)
	fmt.Fprintf(&sb, "Transaction Count (90d): %d\n", agg.TxCount90d)
	fmt.Fprintf(&sb, "Max Transaction Amount: %.2f\n", agg.MaxTxAmount)
	fmt.Fprintf(&sb, "Min Transaction Amount: %.2f\n\n", agg.MinTxAmount)

	if len(u.RecentTransactions) > 0 {
		fmt.Fprintf(&sb, "--- RECENT TRANSACTIONS ---\n")
		for _, tx := range u.RecentTransactions {
			fmt.Fprintf(&sb, "%s | %s | %.2f %s | %s\n",
				tx.Date.Format("2006-01-02"), tx.Direction, tx.Amount,
				tx.Currency, valueOrNA(tx.TransferType))
		}
		fmt.Fprintf(&sb, "\n")
	}

	if u.RiskMetadata != nil {
		fmt.Fprintf(&sb, "--- RISK METADATA ---\n")
		if u.RiskMetadata.RiskScore != nil {
			fmt.Fprintf(&sb, "Risk Score: %d\n", *u.RiskMetadata.RiskScore)
		} else {
			fmt.Fprintf(&sb, "Risk Score: N/A\n")
		}
		fmt.Fprintf(&sb, "Model Version: %s\n", u.RiskMetadata.ModelVersion)
		fmt.Fprintf(&sb, "Assessed At: %s\n\n", u.RiskMetadata.AssessedAt.Format(time.RFC3339))
	}

	if u.OnboardingNotes != "" {
		fmt.Fprintf(&sb, "--- ONBOARDING NOTES ---\n%s\n", u.OnboardingNotes)
	}

	return sb.String()
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

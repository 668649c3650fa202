package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
)

// SummaryTransactionLimit caps the transaction sample in a plain-text
// partner summary.
const SummaryTransactionLimit = 3

// Resolver produces the compact plain-text partner summary used by the basic
// assessment flow. It reads identity, onboarding notes, and a small sample of
// the latest transactions; the full aggregate pipeline is Builder's job.
type Resolver struct {
	store partner.Store
	log   logging.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store partner.Store, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resolver{store: store, log: log.Named("profile_resolver")}
}

// Summarize renders the partner's identity block, onboarding notes, and the
// last few transactions as plain text. Unknown partner IDs return
// ErrCodePartnerNotFound.
func (r *Resolver) Summarize(ctx context.Context, partnerID string) (string, error) {
	p, err := r.store.Partner(ctx, partnerID)
	if err != nil {
		return "", err
	}

	notes, err := r.store.OnboardingNotes(ctx, partnerID)
	if err != nil {
		return "", err
	}

	txns, err := r.latestTransactions(ctx, partnerID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CUSTOMER PROFILE\n")
	fmt.Fprintf(&sb, "Partner ID: %s\n", p.ID)
	fmt.Fprintf(&sb, "Name: %s\n", p.Name)
	fmt.Fprintf(&sb, "KYC Status: %s\n", p.KYCStatus())
	if p.OpenDate != nil {
		fmt.Fprintf(&sb, "Client Since: %s\n", p.OpenDate.Format("2006-01-02"))
	}
	if p.Address != "" {
		fmt.Fprintf(&sb, "Address: %s\n", p.Address)
	}

	if len(notes) > 0 {
		fmt.Fprintf(&sb, "\nONBOARDING NOTES\n")
		for _, n := range notes {
			fmt.Fprintf(&sb, "- %s\n", n.Note)
		}
	}

	if len(txns) > 0 {
		fmt.Fprintf(&sb, "\nLAST %d TRANSACTIONS\n", len(txns))
		for _, tx := range txns {
			fmt.Fprintf(&sb, "- %s: %s %.2f %s\n",
				tx.Date.Format("2006-01-02"), tx.Direction, tx.Amount, tx.Currency)
		}
	}

	return sb.String(), nil
}

// latestTransactions walks the account joins and returns the newest
// transactions first, capped at SummaryTransactionLimit.
func (r *Resolver) latestTransactions(ctx context.Context, partnerID string) ([]partner.Transaction, error) {
	roles, err := r.store.RolesByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	var brIDs []string
	for _, role := range roles {
		if role.EntityType == partner.EntityTypeBusinessRel && role.EntityID != "" {
			brIDs = append(brIDs, role.EntityID)
		}
	}

	accountIDs, err := r.store.AccountIDsByBusinessRels(ctx, brIDs)
	if err != nil {
		return nil, err
	}

	txns, err := r.store.TransactionsByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}

	limit := SummaryTransactionLimit
	if len(txns) < limit {
		limit = len(txns)
	}
	out := make([]partner.Transaction, 0, limit)
	for i := len(txns) - 1; i >= len(txns)-limit; i-- {
		out = append(out, txns[i])
	}
	return out, nil
}

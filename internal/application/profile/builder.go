// Package profile contains the application services that resolve partner
// identities and assemble Unified Customer Profiles from the data source.
package profile

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/domain/profile"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/prometheus"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// Window sizes for the financial aggregates.
const (
	window30d = 30 * 24 * time.Hour
	window90d = 90 * 24 * time.Hour
)

// Builder assembles Unified Customer Profiles. Profiles are built per
// request and never cached or persisted; the data source is the only state.
type Builder struct {
	store   partner.Store
	log     logging.Logger
	metrics *prometheus.AppMetrics
}

// NewBuilder constructs a Builder. metrics may be nil.
func NewBuilder(store partner.Store, log logging.Logger, metrics *prometheus.AppMetrics) *Builder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Builder{store: store, log: log.Named("ucp_builder"), metrics: metrics}
}

// Build resolves the partner's entity graph and assembles the profile.
//
// The resolution chain walks partner → partner_role (entity type "BR") →
// business_rel → br_to_account → account → transactions. A partner whose
// joins yield no accounts still gets a profile; the gap is logged as a data
// integrity warning, not surfaced as a failure.
func (b *Builder) Build(ctx context.Context, partnerID string) (*profile.UCP, error) {
	p, err := b.store.Partner(ctx, partnerID)
	if err != nil {
		if b.metrics != nil {
			b.metrics.ProfileBuildsTotal.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	brIDs, err := b.resolveBusinessRels(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	accountIDs, err := b.store.AccountIDsByBusinessRels(ctx, brIDs)
	if err != nil {
		return nil, err
	}
	if len(accountIDs) == 0 {
		b.log.Warn("partner resolves but has no linked accounts",
			logging.String("partner_id", partnerID),
			logging.Int("business_rels", len(brIDs)))
	}

	accounts, err := b.store.Accounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}

	txns, err := b.store.TransactionsByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}

	notes, err := b.store.OnboardingNotes(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	ucp := &profile.UCP{
		CanonicalID: p.ID,
		CreatedAt:   time.Now().UTC(),
		Identity: profile.Identity{
			CanonicalID:  p.ID,
			Name:         p.Name,
			KYCStatus:    p.KYCStatus(),
			OnboardedAt:  p.OpenDate,
			IndustryCode: p.IndustryCode,
			ClassCode:    p.ClassCode,
		},
		StaticProfile: profile.StaticProfile{
			Gender:    p.Gender,
			BirthYear: p.BirthYear,
			Phone:     p.Phone,
			Address:   p.Address,
			OpenDate:  p.OpenDate,
			CloseDate: p.CloseDate,
		},
		AccountData: profile.AccountData{
			AccountCount: len(accounts),
			Status:       accountStatus(accounts),
			Accounts:     accounts,
		},
		FinancialAggregates: computeAggregates(txns),
		OnboardingNotes:     joinNotes(notes),
		RecentTransactions:  recentTransactions(txns),
	}

	if b.metrics != nil {
		b.metrics.ProfileBuildsTotal.WithLabelValues("success").Inc()
	}
	b.log.Debug("profile built",
		logging.String("partner_id", partnerID),
		logging.Int("accounts", len(accounts)),
		logging.Int("transactions", len(txns)))

	return ucp, nil
}

// resolveBusinessRels returns the partner's business relationship IDs ordered
// by preference: most recently active first, ties broken by first-seen row
// order. Role links whose relationship row is missing from the export are
// kept at the end so their accounts still resolve.
func (b *Builder) resolveBusinessRels(ctx context.Context, partnerID string) ([]string, error) {
	roles, err := b.store.RolesByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		id     string
		active time.Time
		known  bool
		seq    int
	}
	var candidates []candidate
	seen := make(map[string]struct{})

	for i, role := range roles {
		if role.EntityType != partner.EntityTypeBusinessRel || role.EntityID == "" {
			continue
		}
		if _, dup := seen[role.EntityID]; dup {
			continue
		}
		seen[role.EntityID] = struct{}{}

		c := candidate{id: role.EntityID, seq: i}
		br, err := b.store.BusinessRel(ctx, role.EntityID)
		if err != nil {
			return nil, err
		}
		if br != nil {
			c.known = true
			if br.LastActive != nil {
				c.active = *br.LastActive
			} else if br.OpenDate != nil {
				c.active = *br.OpenDate
			}
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].known != candidates[j].known {
			return candidates[i].known
		}
		if !candidates[i].active.Equal(candidates[j].active) {
			return candidates[i].active.After(candidates[j].active)
		}
		return candidates[i].seq < candidates[j].seq
	})

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out, nil
}

// computeAggregates derives the windowed aggregates. Windows are anchored at
// the latest observed transaction date so that a static export keeps
// producing stable values instead of decaying to zero as wall-clock time
// moves past the data.
func computeAggregates(txns []partner.Transaction) profile.Aggregates {
	var agg profile.Aggregates
	if len(txns) == 0 {
		return agg
	}

	// txns arrive sorted ascending by date.
	anchor := txns[len(txns)-1].Date
	agg.AnchorDate = &anchor
	start30 := anchor.Add(-window30d)
	start90 := anchor.Add(-window90d)

	var sum90 float64
	var in30 []partner.Transaction
	maxAbs := math.Inf(-1)
	minAbs := math.Inf(1)

	for _, tx := range txns {
		abs := math.Abs(tx.Amount)
		if abs > maxAbs {
			maxAbs = abs
		}
		if abs < minAbs {
			minAbs = abs
		}

		if tx.Date.Before(start90) {
			continue
		}
		agg.TxCount90d++
		sum90 += tx.Amount
		if tx.IsDebit() {
			agg.TotalSpending90d += tx.Amount
		}

		if tx.Date.Before(start30) {
			continue
		}
		agg.TxCount30d++
		in30 = append(in30, tx)
		if tx.IsDebit() {
			agg.TotalSpending30d += tx.Amount
		}
	}

	if agg.TxCount90d > 0 {
		avg := sum90 / float64(agg.TxCount90d)
		agg.AvgTxValue90d = &avg
	}
	agg.MaxTxAmount = maxAbs
	agg.MinTxAmount = minAbs
	agg.VelocityTxPerHour = computeVelocity(in30)

	return agg
}

// computeVelocity returns transactions per hour over the 30-day window.
// Fewer than two transactions yield zero; spans under one hour are clamped
// to one hour so a burst of same-day rows cannot explode the rate.
func computeVelocity(in30 []partner.Transaction) float64 {
	if len(in30) < 2 {
		return 0
	}
	spanHours := in30[len(in30)-1].Date.Sub(in30[0].Date).Hours()
	if spanHours < 1 {
		spanHours = 1
	}
	return float64(len(in30)) / spanHours
}

func accountStatus(accounts []partner.Account) string {
	if len(accounts) == 0 {
		return "none"
	}
	return "active"
}

func joinNotes(notes []partner.OnboardingNote) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		parts = append(parts, n.Note)
	}
	return strings.Join(parts, "\n")
}

// recentTransactions returns the newest transactions first, capped at
// profile.RecentTransactionLimit.
func recentTransactions(txns []partner.Transaction) []partner.Transaction {
	n := len(txns)
	limit := profile.RecentTransactionLimit
	if n < limit {
		limit = n
	}
	out := make([]partner.Transaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, txns[i])
	}
	return out
}

// DataIntegrityWarning builds the advisory error callers can attach to
// responses for partners whose joins yield no accounts. It is informational;
// Build never returns it.
func DataIntegrityWarning(partnerID string) *errors.AppError {
	return errors.New(errors.ErrCodeDataIntegrity,
		errors.DefaultMessageForCode(errors.ErrCodeDataIntegrity)).
		WithDetail("partner_id=" + partnerID)
}

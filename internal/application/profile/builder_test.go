package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/internal/testutil"
	"github.com/finsentry/aml-insight/pkg/errors"
)

const testPartnerID = "96a660ff-08e0-49c1-be6d-bb22a84e742e"

func day(offset int) time.Time {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func seedPartner(store *testutil.FakeStore) {
	open := day(-400)
	store.Partners[testPartnerID] = partner.Partner{
		ID:       testPartnerID,
		Name:     "Acme Trading Ltd",
		OpenDate: &open,
	}
	store.Roles[testPartnerID] = []partner.Role{
		{PartnerID: testPartnerID, EntityType: "BR", EntityID: "BR-1"},
	}
	store.BusinessRels["BR-1"] = partner.BusinessRel{ID: "BR-1"}
	store.AccountLinks["BR-1"] = []string{"ACC-1"}
	store.AccountRows["ACC-1"] = partner.Account{ID: "ACC-1", Currency: "EUR"}
}

func tx(date time.Time, amount float64, direction string) partner.Transaction {
	return partner.Transaction{
		AccountID: "ACC-1", Date: date, Amount: amount,
		Currency: "EUR", Direction: direction,
	}
}

func TestBuild_UnknownPartnerReturnsNotFound(t *testing.T) {
	b := NewBuilder(testutil.NewFakeStore(), logging.NewNopLogger(), nil)

	_, err := b.Build(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePartnerNotFound))
}

func TestBuild_NoTransactionsYieldsZeroAggregates(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)

	agg := ucp.FinancialAggregates
	assert.Zero(t, agg.TotalSpending30d)
	assert.Zero(t, agg.TotalSpending90d)
	assert.Nil(t, agg.AvgTxValue90d, "average must be absent, not NaN, without transactions")
	assert.Zero(t, agg.VelocityTxPerHour)
	assert.Zero(t, agg.TxCount30d)
	assert.Nil(t, agg.AnchorDate)
}

func TestBuild_NoAccountsStillBuildsProfile(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)
	store.AccountLinks = map[string][]string{}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err, "missing accounts is a data gap, not a failure")
	assert.Zero(t, ucp.AccountData.AccountCount)
	assert.Equal(t, "none", ucp.AccountData.Status)
}

func TestBuild_WindowsAnchoredAtLatestTransaction(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)
	store.Transactions["ACC-1"] = []partner.Transaction{
		tx(day(-120), 1000, "debit"), // outside both windows
		tx(day(-60), 200, "debit"),   // 90d only
		tx(day(-40), 300, "credit"),  // 90d only, not spending
		tx(day(-10), 100, "debit"),   // both windows
		tx(day(0), 50, "debit"),      // anchor
	}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)

	agg := ucp.FinancialAggregates
	require.NotNil(t, agg.AnchorDate)
	assert.Equal(t, day(0), *agg.AnchorDate)

	assert.Equal(t, 150.0, agg.TotalSpending30d)
	assert.Equal(t, 350.0, agg.TotalSpending90d, "credits must not count as spending")
	assert.Equal(t, 2, agg.TxCount30d)
	assert.Equal(t, 4, agg.TxCount90d)

	require.NotNil(t, agg.AvgTxValue90d)
	assert.InDelta(t, 162.5, *agg.AvgTxValue90d, 0.001) // (200+300+100+50)/4

	assert.Equal(t, 1000.0, agg.MaxTxAmount)
	assert.Equal(t, 50.0, agg.MinTxAmount)
}

func TestBuild_VelocityRequiresTwoTransactions(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)
	store.Transactions["ACC-1"] = []partner.Transaction{
		tx(day(0), 50, "debit"),
	}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)
	assert.Zero(t, ucp.FinancialAggregates.VelocityTxPerHour)
}

func TestBuild_VelocityOverWindowSpan(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)
	// 3 transactions over 48 hours inside the 30d window.
	store.Transactions["ACC-1"] = []partner.Transaction{
		tx(day(-2), 10, "debit"),
		tx(day(-1), 20, "debit"),
		tx(day(0), 30, "debit"),
	}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)
	assert.InDelta(t, 3.0/48.0, ucp.FinancialAggregates.VelocityTxPerHour, 0.0001)
}

func TestBuild_VelocitySpanClampedToOneHour(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)
	base := day(0)
	store.Transactions["ACC-1"] = []partner.Transaction{
		tx(base, 10, "debit"),
		tx(base.Add(5*time.Minute), 20, "debit"),
		tx(base.Add(10*time.Minute), 30, "debit"),
	}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, ucp.FinancialAggregates.VelocityTxPerHour,
		"bursts within an hour are rated against a one-hour floor")
}

func TestBuild_RecentTransactionsNewestFirstCappedAtFive(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)
	for i := 0; i < 8; i++ {
		store.Transactions["ACC-1"] = append(store.Transactions["ACC-1"],
			tx(day(-i), float64(100+i), "debit"))
	}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)

	recent := ucp.RecentTransactions
	require.Len(t, recent, 5)
	assert.Equal(t, day(0), recent[0].Date)
	assert.True(t, recent[0].Date.After(recent[4].Date))
}

func TestBuild_NotesJoined(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)
	store.Notes[testPartnerID] = []partner.OnboardingNote{
		{PartnerID: testPartnerID, Note: "Importer of textiles."},
		{PartnerID: testPartnerID, Note: "Expects monthly settlements."},
	}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)
	assert.Equal(t, "Importer of textiles.\nExpects monthly settlements.", ucp.OnboardingNotes)
}

func TestBuild_PrefersMostRecentlyActiveBusinessRel(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)

	older := day(-200)
	newer := day(-5)
	store.Roles[testPartnerID] = []partner.Role{
		{PartnerID: testPartnerID, EntityType: "BR", EntityID: "BR-old"},
		{PartnerID: testPartnerID, EntityType: "BR", EntityID: "BR-new"},
		{PartnerID: testPartnerID, EntityType: "EMP", EntityID: "E-1"},
	}
	store.BusinessRels["BR-old"] = partner.BusinessRel{ID: "BR-old", LastActive: &older}
	store.BusinessRels["BR-new"] = partner.BusinessRel{ID: "BR-new", LastActive: &newer}
	store.AccountLinks["BR-old"] = []string{"ACC-OLD"}
	store.AccountLinks["BR-new"] = []string{"ACC-NEW"}
	store.AccountRows["ACC-OLD"] = partner.Account{ID: "ACC-OLD"}
	store.AccountRows["ACC-NEW"] = partner.Account{ID: "ACC-NEW"}

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)

	require.Len(t, ucp.AccountData.Accounts, 2)
	assert.Equal(t, "ACC-NEW", ucp.AccountData.Accounts[0].ID,
		"accounts of the most recently active relationship come first")
}

func TestBuild_IdentityAndKYC(t *testing.T) {
	store := testutil.NewFakeStore()
	seedPartner(store)

	ucp, err := NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), testPartnerID)
	require.NoError(t, err)

	assert.Equal(t, testPartnerID, ucp.CanonicalID)
	assert.Equal(t, "Acme Trading Ltd", ucp.Identity.Name)
	assert.Equal(t, "verified", ucp.Identity.KYCStatus)
	assert.Equal(t, "active", ucp.AccountData.Status)
	assert.False(t, ucp.CreatedAt.IsZero())
}

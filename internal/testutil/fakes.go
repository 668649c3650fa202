// Package testutil provides in-memory fakes shared by unit tests across the
// application packages.
package testutil

import (
	"context"
	"sort"

	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/llm"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// FakeStore is an in-memory partner.Store for tests. Populate the maps
// directly; zero-valued maps behave like empty tables. Setting Err forces
// every method to fail with it.
type FakeStore struct {
	Partners     map[string]partner.Partner
	Roles        map[string][]partner.Role
	BusinessRels map[string]partner.BusinessRel
	AccountLinks map[string][]string
	AccountRows  map[string]partner.Account
	Transactions map[string][]partner.Transaction
	Notes        map[string][]partner.OnboardingNote

	Err error
}

var _ partner.Store = (*FakeStore)(nil)

// NewFakeStore returns a FakeStore with all tables initialised empty.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Partners:     make(map[string]partner.Partner),
		Roles:        make(map[string][]partner.Role),
		BusinessRels: make(map[string]partner.BusinessRel),
		AccountLinks: make(map[string][]string),
		AccountRows:  make(map[string]partner.Account),
		Transactions: make(map[string][]partner.Transaction),
		Notes:        make(map[string][]partner.OnboardingNote),
	}
}

func (f *FakeStore) Partner(_ context.Context, id string) (*partner.Partner, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.Partners[id]
	if !ok {
		return nil, errors.PartnerNotFound(id)
	}
	return &p, nil
}

func (f *FakeStore) RolesByPartner(_ context.Context, partnerID string) ([]partner.Role, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Roles[partnerID], nil
}

func (f *FakeStore) BusinessRel(_ context.Context, id string) (*partner.BusinessRel, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	br, ok := f.BusinessRels[id]
	if !ok {
		return nil, nil
	}
	return &br, nil
}

func (f *FakeStore) AccountIDsByBusinessRels(_ context.Context, brIDs []string) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, brID := range brIDs {
		for _, accountID := range f.AccountLinks[brID] {
			if _, dup := seen[accountID]; dup {
				continue
			}
			seen[accountID] = struct{}{}
			out = append(out, accountID)
		}
	}
	return out, nil
}

func (f *FakeStore) Accounts(_ context.Context, ids []string) ([]partner.Account, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []partner.Account
	for _, id := range ids {
		if acct, ok := f.AccountRows[id]; ok {
			out = append(out, acct)
		}
	}
	return out, nil
}

func (f *FakeStore) TransactionsByAccounts(_ context.Context, accountIDs []string) ([]partner.Transaction, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []partner.Transaction
	for _, id := range accountIDs {
		out = append(out, f.Transactions[id]...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (f *FakeStore) OnboardingNotes(_ context.Context, partnerID string) ([]partner.OnboardingNote, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Notes[partnerID], nil
}

// FakeLLM is a scripted llm.Client for tests.
type FakeLLM struct {
	// Response is returned by Generate when Err is nil.
	Response string
	Err      error
	PingErr  error

	// LastRequest captures the most recent Generate argument.
	LastRequest llm.Request
	Calls       int
}

var _ llm.Client = (*FakeLLM)(nil)

func (f *FakeLLM) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.Calls++
	f.LastRequest = req
	if f.Err != nil {
		return nil, f.Err
	}
	return &llm.Response{Content: f.Response}, nil
}

func (f *FakeLLM) Ping(_ context.Context) error {
	return f.PingErr
}

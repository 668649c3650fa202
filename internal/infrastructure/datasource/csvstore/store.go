// Package csvstore implements partner.Store over the institution's flat-file
// CSV export. All seven tables are loaded into memory at startup and served
// read-only; the data set is small enough (tens of thousands of rows) that
// index maps beat any on-disk query strategy.
package csvstore

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// File names of the export tables inside the data directory.
const (
	filePartners    = "partner.csv"
	fileNotes       = "client_onboarding_notes.csv"
	fileRoles       = "partner_role.csv"
	fileBusinessRel = "business_rel.csv"
	fileBRAccounts  = "br_to_account.csv"
	fileAccounts    = "account.csv"
	fileTxns        = "transactions.csv"
)

// Store is the in-memory CSV-backed implementation of partner.Store.
type Store struct {
	log logging.Logger

	partners      map[string]partner.Partner
	rolesByID     map[string][]partner.Role
	businessRels  map[string]partner.BusinessRel
	accountsByBR  map[string][]string
	accounts      map[string]partner.Account
	txnsByAccount map[string][]partner.Transaction
	notesByID     map[string][]partner.OnboardingNote
}

var _ partner.Store = (*Store)(nil)

// NewStore loads every table from dir. The partner table is mandatory; any
// other table that is missing or partially malformed degrades to absent rows
// with a warning, never a startup failure.
func NewStore(dir string, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &Store{
		log:           log.Named("csvstore"),
		partners:      make(map[string]partner.Partner),
		rolesByID:     make(map[string][]partner.Role),
		businessRels:  make(map[string]partner.BusinessRel),
		accountsByBR:  make(map[string][]string),
		accounts:      make(map[string]partner.Account),
		txnsByAccount: make(map[string][]partner.Transaction),
		notesByID:     make(map[string][]partner.OnboardingNote),
	}

	if err := s.loadPartners(filepath.Join(dir, filePartners)); err != nil {
		return nil, err
	}
	s.loadOptional(filepath.Join(dir, fileNotes), s.loadNotes)
	s.loadOptional(filepath.Join(dir, fileRoles), s.loadRoles)
	s.loadOptional(filepath.Join(dir, fileBusinessRel), s.loadBusinessRels)
	s.loadOptional(filepath.Join(dir, fileBRAccounts), s.loadAccountLinks)
	s.loadOptional(filepath.Join(dir, fileAccounts), s.loadAccounts)
	s.loadOptional(filepath.Join(dir, fileTxns), s.loadTransactions)

	// Transactions arrive unordered in the export; Store methods promise
	// ascending date order.
	for id := range s.txnsByAccount {
		txns := s.txnsByAccount[id]
		sort.SliceStable(txns, func(i, j int) bool {
			return txns[i].Date.Before(txns[j].Date)
		})
	}

	s.log.Info("csv tables loaded",
		logging.Int("partners", len(s.partners)),
		logging.Int("accounts", len(s.accounts)),
		logging.Int("business_rels", len(s.businessRels)))

	return s, nil
}

func (s *Store) loadOptional(path string, load func(rows []record) error) {
	rows, err := readTable(path)
	if err != nil {
		s.log.Warn("table unavailable, continuing with empty rows",
			logging.String("path", path), logging.Err(err))
		return
	}
	if err := load(rows); err != nil {
		s.log.Warn("table partially loaded",
			logging.String("path", path), logging.Err(err))
	}
}

func (s *Store) loadPartners(path string) error {
	rows, err := readTable(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			"failed to read partner table").WithDetail("path=" + path)
	}
	for _, row := range rows {
		id := row.str("partner_id")
		if id == "" {
			continue
		}
		s.partners[id] = partner.Partner{
			ID:           id,
			Name:         row.str("partner_name"),
			Gender:       row.str("partner_gender"),
			BirthYear:    row.intval("partner_birth_year"),
			Phone:        row.str("partner_phone_number"),
			Address:      row.str("partner_address"),
			OpenDate:     row.date("partner_open_date"),
			CloseDate:    row.date("partner_close_date"),
			IndustryCode: row.str("industry_gic2_code"),
			ClassCode:    row.str("partner_class_code"),
		}
	}
	return nil
}

func (s *Store) loadNotes(rows []record) error {
	for _, row := range rows {
		id := row.str("partner_id")
		note := row.str("onboarding_note")
		if id == "" || note == "" {
			continue
		}
		s.notesByID[id] = append(s.notesByID[id], partner.OnboardingNote{
			PartnerID: id,
			Note:      note,
		})
	}
	return nil
}

func (s *Store) loadRoles(rows []record) error {
	for _, row := range rows {
		id := row.str("partner_id")
		if id == "" {
			continue
		}
		s.rolesByID[id] = append(s.rolesByID[id], partner.Role{
			PartnerID:  id,
			EntityType: strings.ToUpper(row.str("entity_type")),
			EntityID:   row.str("entity_id"),
		})
	}
	return nil
}

func (s *Store) loadBusinessRels(rows []record) error {
	for _, row := range rows {
		id := row.str("br_id")
		if id == "" {
			continue
		}
		s.businessRels[id] = partner.BusinessRel{
			ID:         id,
			OpenDate:   row.date("br_open_date"),
			CloseDate:  row.date("br_close_date"),
			LastActive: row.date("br_last_active_date"),
			Status:     row.str("br_status"),
		}
	}
	return nil
}

func (s *Store) loadAccountLinks(rows []record) error {
	for _, row := range rows {
		brID := row.str("br_id")
		accountID := row.str("account_id")
		if brID == "" || accountID == "" {
			continue
		}
		s.accountsByBR[brID] = append(s.accountsByBR[brID], accountID)
	}
	return nil
}

func (s *Store) loadAccounts(rows []record) error {
	for _, row := range rows {
		id := row.str("account_id")
		if id == "" {
			continue
		}
		s.accounts[id] = partner.Account{
			ID:       id,
			Currency: row.str("currency"),
			Status:   row.str("account_status"),
			Balance:  row.optFloat("balance"),
		}
	}
	return nil
}

func (s *Store) loadTransactions(rows []record) error {
	for _, row := range rows {
		accountID := row.str("account_id")
		date := row.date("date")
		if accountID == "" || date == nil {
			// A transaction without an account or date cannot be windowed;
			// drop the row rather than poison the aggregates.
			continue
		}
		s.txnsByAccount[accountID] = append(s.txnsByAccount[accountID], partner.Transaction{
			AccountID:           accountID,
			Date:                *date,
			Amount:              row.floatval("amount"),
			Currency:            row.str("currency"),
			Direction:           strings.ToLower(row.str("debit_credit")),
			TransferType:        row.str("transfer_type"),
			Balance:             row.optFloat("balance"),
			CounterpartyAccount: row.str("counterparty_account_id"),
			CounterpartyExtID:   row.str("ext_counterparty_account_id"),
			CounterpartyCountry: row.str("ext_counterparty_country"),
		})
	}
	return nil
}

// Partner implements partner.Store.
func (s *Store) Partner(_ context.Context, id string) (*partner.Partner, error) {
	p, ok := s.partners[id]
	if !ok {
		return nil, errors.PartnerNotFound(id)
	}
	return &p, nil
}

// RolesByPartner implements partner.Store.
func (s *Store) RolesByPartner(_ context.Context, partnerID string) ([]partner.Role, error) {
	return append([]partner.Role(nil), s.rolesByID[partnerID]...), nil
}

// BusinessRel implements partner.Store.
func (s *Store) BusinessRel(_ context.Context, id string) (*partner.BusinessRel, error) {
	br, ok := s.businessRels[id]
	if !ok {
		return nil, nil
	}
	return &br, nil
}

// AccountIDsByBusinessRels implements partner.Store.
func (s *Store) AccountIDsByBusinessRels(_ context.Context, brIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, brID := range brIDs {
		for _, accountID := range s.accountsByBR[brID] {
			if _, dup := seen[accountID]; dup {
				continue
			}
			seen[accountID] = struct{}{}
			out = append(out, accountID)
		}
	}
	return out, nil
}

// Accounts implements partner.Store.
func (s *Store) Accounts(_ context.Context, ids []string) ([]partner.Account, error) {
	out := make([]partner.Account, 0, len(ids))
	for _, id := range ids {
		if acct, ok := s.accounts[id]; ok {
			out = append(out, acct)
		}
	}
	return out, nil
}

// TransactionsByAccounts implements partner.Store.
func (s *Store) TransactionsByAccounts(_ context.Context, accountIDs []string) ([]partner.Transaction, error) {
	var out []partner.Transaction
	for _, id := range accountIDs {
		out = append(out, s.txnsByAccount[id]...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// OnboardingNotes implements partner.Store.
func (s *Store) OnboardingNotes(_ context.Context, partnerID string) ([]partner.OnboardingNote, error) {
	return append([]partner.OnboardingNote(nil), s.notesByID[partnerID]...), nil
}

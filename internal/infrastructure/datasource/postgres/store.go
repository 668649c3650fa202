// Package postgres implements partner.Store over a PostgreSQL database that
// holds the same seven tables as the CSV export. It is the deployment path
// for installations that have loaded the export into a shared database
// instead of shipping flat files with the service.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsentry/aml-insight/internal/config"
	"github.com/finsentry/aml-insight/internal/domain/partner"
	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
	"github.com/finsentry/aml-insight/pkg/errors"
)

// Store is the pgx-backed implementation of partner.Store.
type Store struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

var _ partner.Store = (*Store)(nil)

// NewStore connects to PostgreSQL, verifies the connection with a ping, and
// returns a ready Store. The caller owns the Store and must Close it.
func NewStore(ctx context.Context, cfg config.PostgresConfig, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			"invalid postgres configuration")
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			"failed to create postgres pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
			"postgres ping failed").WithDetail("host=" + cfg.Host)
	}

	log.Named("postgres").Info("connected",
		logging.String("host", cfg.Host),
		logging.String("database", cfg.Database))

	return &Store{pool: pool, log: log.Named("postgres")}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Partner implements partner.Store.
func (s *Store) Partner(ctx context.Context, id string) (*partner.Partner, error) {
	const q = `
		SELECT partner_id, partner_name, partner_gender, partner_birth_year,
		       partner_phone_number, partner_address, partner_open_date,
		       partner_close_date, industry_gic2_code, partner_class_code
		FROM partner
		WHERE partner_id = $1`

	var p partner.Partner
	var birthYear *int
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Gender, &birthYear, &p.Phone, &p.Address,
		&p.OpenDate, &p.CloseDate, &p.IndustryCode, &p.ClassCode)
	if err == pgx.ErrNoRows {
		return nil, errors.PartnerNotFound(id)
	}
	if err != nil {
		return nil, s.queryErr(err, "partner")
	}
	if birthYear != nil {
		p.BirthYear = *birthYear
	}
	return &p, nil
}

// RolesByPartner implements partner.Store.
func (s *Store) RolesByPartner(ctx context.Context, partnerID string) ([]partner.Role, error) {
	const q = `
		SELECT partner_id, entity_type, entity_id
		FROM partner_role
		WHERE partner_id = $1
		ORDER BY row_seq`

	rows, err := s.pool.Query(ctx, q, partnerID)
	if err != nil {
		return nil, s.queryErr(err, "partner_role")
	}
	defer rows.Close()

	var out []partner.Role
	for rows.Next() {
		var r partner.Role
		if err := rows.Scan(&r.PartnerID, &r.EntityType, &r.EntityID); err != nil {
			return nil, s.queryErr(err, "partner_role")
		}
		r.EntityType = strings.ToUpper(r.EntityType)
		out = append(out, r)
	}
	return out, rows.Err()
}

// BusinessRel implements partner.Store.
func (s *Store) BusinessRel(ctx context.Context, id string) (*partner.BusinessRel, error) {
	const q = `
		SELECT br_id, br_open_date, br_close_date, br_last_active_date, br_status
		FROM business_rel
		WHERE br_id = $1`

	var br partner.BusinessRel
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&br.ID, &br.OpenDate, &br.CloseDate, &br.LastActive, &br.Status)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, s.queryErr(err, "business_rel")
	}
	return &br, nil
}

// AccountIDsByBusinessRels implements partner.Store.
func (s *Store) AccountIDsByBusinessRels(ctx context.Context, brIDs []string) ([]string, error) {
	if len(brIDs) == 0 {
		return nil, nil
	}

	const q = `
		SELECT br_id, account_id
		FROM br_to_account
		WHERE br_id = ANY($1)
		ORDER BY row_seq`

	rows, err := s.pool.Query(ctx, q, brIDs)
	if err != nil {
		return nil, s.queryErr(err, "br_to_account")
	}
	defer rows.Close()

	byBR := make(map[string][]string)
	for rows.Next() {
		var brID, accountID string
		if err := rows.Scan(&brID, &accountID); err != nil {
			return nil, s.queryErr(err, "br_to_account")
		}
		byBR[brID] = append(byBR[brID], accountID)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryErr(err, "br_to_account")
	}

	// Preserve caller order across relationships, de-duplicating accounts.
	seen := make(map[string]struct{})
	var out []string
	for _, brID := range brIDs {
		for _, accountID := range byBR[brID] {
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
func (s *Store) Accounts(ctx context.Context, ids []string) ([]partner.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const q = `
		SELECT account_id, currency, account_status, balance
		FROM account
		WHERE account_id = ANY($1)`

	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, s.queryErr(err, "account")
	}
	defer rows.Close()

	var out []partner.Account
	for rows.Next() {
		var a partner.Account
		if err := rows.Scan(&a.ID, &a.Currency, &a.Status, &a.Balance); err != nil {
			return nil, s.queryErr(err, "account")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TransactionsByAccounts implements partner.Store.
func (s *Store) TransactionsByAccounts(ctx context.Context, accountIDs []string) ([]partner.Transaction, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	const q = `
		SELECT account_id, tx_date, amount, currency, debit_credit,
		       transfer_type, balance, counterparty_account_id,
		       ext_counterparty_account_id, ext_counterparty_country
		FROM transactions
		WHERE account_id = ANY($1)
		ORDER BY tx_date ASC`

	rows, err := s.pool.Query(ctx, q, accountIDs)
	if err != nil {
		return nil, s.queryErr(err, "transactions")
	}
	defer rows.Close()

	var out []partner.Transaction
	for rows.Next() {
		var t partner.Transaction
		if err := rows.Scan(&t.AccountID, &t.Date, &t.Amount, &t.Currency,
			&t.Direction, &t.TransferType, &t.Balance,
			&t.CounterpartyAccount, &t.CounterpartyExtID,
			&t.CounterpartyCountry); err != nil {
			return nil, s.queryErr(err, "transactions")
		}
		t.Direction = strings.ToLower(t.Direction)
		out = append(out, t)
	}
	return out, rows.Err()
}

// OnboardingNotes implements partner.Store.
func (s *Store) OnboardingNotes(ctx context.Context, partnerID string) ([]partner.OnboardingNote, error) {
	const q = `
		SELECT partner_id, onboarding_note
		FROM client_onboarding_notes
		WHERE partner_id = $1
		ORDER BY row_seq`

	rows, err := s.pool.Query(ctx, q, partnerID)
	if err != nil {
		return nil, s.queryErr(err, "client_onboarding_notes")
	}
	defer rows.Close()

	var out []partner.OnboardingNote
	for rows.Next() {
		var n partner.OnboardingNote
		if err := rows.Scan(&n.PartnerID, &n.Note); err != nil {
			return nil, s.queryErr(err, "client_onboarding_notes")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) queryErr(err error, table string) error {
	s.log.Error("query failed", logging.String("table", table), logging.Err(err))
	return errors.Wrap(err, errors.ErrCodeDataSourceUnavailable,
		fmt.Sprintf("query on %s failed", table))
}

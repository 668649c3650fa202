package partner

import "context"

// Store is the read-only contract that data-source backends implement.
// Implementations live in internal/infrastructure/datasource; the CSV backend
// serves the institution's flat-file export, the postgres backend the same
// schema loaded into a database.
//
// All methods return pkg/errors AppError values: ErrCodePartnerNotFound when
// an ID does not resolve, ErrCodeDataSourceUnavailable for backend failures.
// Methods that return slices return empty slices, not errors, when a partner
// simply has no linked rows.
type Store interface {
	// Partner returns the identity row for id.
	Partner(ctx context.Context, id string) (*Partner, error)

	// RolesByPartner returns every role row linked to the partner,
	// in table order.
	RolesByPartner(ctx context.Context, partnerID string) ([]Role, error)

	// BusinessRel returns the business relationship row for id, or nil
	// (without error) when the link target is missing from the export.
	BusinessRel(ctx context.Context, id string) (*BusinessRel, error)

	// AccountIDsByBusinessRels returns the account IDs linked to any of the
	// given business relationships, de-duplicated, in first-seen order.
	AccountIDsByBusinessRels(ctx context.Context, brIDs []string) ([]string, error)

	// Accounts returns the account rows for the given IDs. IDs without a
	// matching row are skipped.
	Accounts(ctx context.Context, ids []string) ([]Account, error)

	// TransactionsByAccounts returns every transaction on the given
	// accounts, ordered by date ascending.
	TransactionsByAccounts(ctx context.Context, accountIDs []string) ([]Transaction, error)

	// OnboardingNotes returns the onboarding notes for the partner.
	OnboardingNotes(ctx context.Context, partnerID string) ([]OnboardingNote, error)
}

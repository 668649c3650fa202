// Package partner defines the core entities of the customer data model and
// the Store contract that data-source backends implement.
//
// The tables mirror the institution's export format: partner identity rows,
// role links, business relationships, relationship-to-account links, accounts,
// transactions, and onboarding notes.
package partner

import "time"

// Partner is a row of the partner identity table.
type Partner struct {
	ID        string
	Name      string
	Gender    string
	BirthYear int
	Phone     string
	Address   string
	OpenDate  *time.Time
	CloseDate *time.Time

	// IndustryCode is the two-level GIC industry classification.
	IndustryCode string
	ClassCode    string
}

// KYCStatus derives the know-your-customer state from the identity row.
// A partner with a recorded open date is considered verified.
func (p *Partner) KYCStatus() string {
	if p.OpenDate != nil {
		return "verified"
	}
	return "pending"
}

// Role links a partner to another entity. Entity type "BR" links to a
// business relationship; other types exist in the export but are not
// traversed when resolving accounts.
type Role struct {
	PartnerID  string
	EntityType string
	EntityID   string
}

// EntityTypeBusinessRel is the role entity type that links a partner to a
// business relationship.
const EntityTypeBusinessRel = "BR"

// BusinessRel is a row of the business relationship table.
type BusinessRel struct {
	ID         string
	OpenDate   *time.Time
	CloseDate  *time.Time
	LastActive *time.Time
	Status     string
}

// AccountLink joins a business relationship to an account.
type AccountLink struct {
	BusinessRelID string
	AccountID     string
}

// Account is a row of the account table.
type Account struct {
	ID       string
	Currency string
	Status   string
	Balance  *float64
}

// Transaction is a row of the transaction table. Amount is positive for both
// directions; Direction distinguishes debits from credits.
type Transaction struct {
	AccountID string
	Date      time.Time
	Amount    float64
	Currency  string

	// Direction is "debit" or "credit", lower-cased at load time.
	Direction string

	TransferType        string
	Balance             *float64
	CounterpartyAccount string
	CounterpartyExtID   string
	CounterpartyCountry string
}

// IsDebit reports whether the transaction moved money out of the account.
func (t *Transaction) IsDebit() bool {
	return t.Direction == "debit"
}

// OnboardingNote is a free-text note captured during client onboarding.
type OnboardingNote struct {
	PartnerID string
	Note      string
}

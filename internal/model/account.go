package model

import "github.com/shopspring/decimal"

// AccountStatus is the lifecycle code of a savings or loan account, using the
// persisted platform codes. Loan and savings accounts share the numbering.
type AccountStatus int

const (
	AccountStatusSubmitted AccountStatus = 100
	AccountStatusApproved  AccountStatus = 200
	AccountStatusActive    AccountStatus = 300
	AccountStatusClosed    AccountStatus = 600
	AccountStatusOverpaid  AccountStatus = 700

	// Loan-side aliases used by advance-payment candidate listings.
	AccountStatusPendingApproval   AccountStatus = 100
	AccountStatusAwaitingDisbursal AccountStatus = 200
)

// AccountRef is a read-only projection of one account, uniform across kinds.
// It is resolved on demand and never persisted by this core.
type AccountRef struct {
	AccountID    int64
	Kind         AccountKind
	OfficeID     int64
	ClientID     int64
	CurrencyCode string
	Status       AccountStatus

	// AmountAvailableForTransfer is populated only by overpaid-loan
	// resolution, for refund-by-transfer flows.
	AmountAvailableForTransfer decimal.Decimal
}

// LoanDues is a snapshot of what a loan currently owes as of its next due
// date. HasDue is false when the loan has no scheduled due date.
type LoanDues struct {
	LoanID    int64
	DueDate   Date
	HasDue    bool
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Fees      decimal.Decimal
	Penalty   decimal.Decimal
}

// Total returns the full amount owed across all dues components.
func (d LoanDues) Total() decimal.Decimal {
	return d.Principal.Add(d.Interest).Add(d.Fees).Add(d.Penalty)
}

package model

import "github.com/shopspring/decimal"

// TransferRecord is the persisted record of one executed fund movement.
// It is immutable once written, except the Reversed flag which transitions
// false to true exactly once.
type TransferRecord struct {
	ID            int64
	FromAccount   AccountRef
	ToAccount     AccountRef
	TransferKind  TransferKind
	Amount        decimal.Decimal
	CurrencyCode  string
	TransferDate  Date
	Description   string
	Reversed      bool

	// FromTransactionID and ToTransactionID reference the underlying ledger
	// transactions; the account kinds decide which ledger each belongs to.
	FromTransactionID int64
	ToTransactionID   int64
}

// CreateTransfer is the inbound command for one interactive fund movement.
// Upstream request parsing and validation has already happened; the
// orchestrator still enforces the domain invariants before any mutation.
type CreateTransfer struct {
	FromAccountKind AccountKind
	FromAccountID   int64
	ToAccountKind   AccountKind
	ToAccountID     int64
	TransferKind    TransferKind
	TransferDate    Date
	Amount          decimal.Decimal
	Description     string
}

// Package journal hands completed transfers to the general ledger. The
// posting rules themselves live downstream; this package records the bridge
// payload, one balanced pair of entries per transfer.
package journal

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/store"
)

// Direction marks which side of the movement a bridge leg sits on.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// BridgeLeg describes one underlying ledger transaction of a transfer.
type BridgeLeg struct {
	AccountKind    model.AccountKind
	AccountID      int64
	TransactionRef string
	Direction      Direction
	Amount         decimal.Decimal
}

// BridgePayload is the accounting hand-off emitted after a successful
// transfer: currency, office, and both underlying transactions.
type BridgePayload struct {
	TransferID   int64
	OfficeID     int64
	CurrencyCode string
	EntryDate    model.Date
	Legs         []BridgeLeg
}

// Poster writes bridge payloads for the journal-posting collaborator.
type Poster struct{}

// NewPoster creates a Poster.
func NewPoster() *Poster { return &Poster{} }

// PostTransferEntries appends one journal row per bridge leg, inside the
// caller's transaction.
func (p *Poster) PostTransferEntries(ctx context.Context, q store.Querier, payload BridgePayload) error {
	for _, leg := range payload.Legs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO journal_entries (transfer_id, office_id, currency_code, account_kind, account_id, transaction_ref, direction, amount, entry_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			payload.TransferID, payload.OfficeID, payload.CurrencyCode,
			leg.AccountKind.Code(), leg.AccountID, leg.TransactionRef,
			string(leg.Direction), leg.Amount.String(), payload.EntryDate.String())
		if err != nil {
			return fmt.Errorf("posting journal entry for transfer %d: %w", payload.TransferID, err)
		}
	}
	return nil
}

// EntriesForTransfer returns the number of journal rows recorded for one
// transfer. Used by tests and reconciliation checks.
func (p *Poster) EntriesForTransfer(ctx context.Context, q store.Querier, transferID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE transfer_id = ?`, transferID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting journal entries for transfer %d: %w", transferID, err)
	}
	return n, nil
}

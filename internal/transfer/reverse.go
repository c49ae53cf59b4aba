package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/corebank-dev/corebank/internal/ledger"
	"github.com/corebank-dev/corebank/internal/model"
)

// CascadeScope selects which transfer records a reversal cascade covers.
type CascadeScope int

const (
	// ScopeFromAccount reverses transfers sourced from the account.
	ScopeFromAccount CascadeScope = iota
	// ScopeTouchingAccount reverses transfers where the account is either
	// leg. Used on account closure.
	ScopeTouchingAccount
)

// Reverse undoes a transfer's ledger effects and flips its reversed flag.
// Reversing an already-reversed record is a no-op.
func (o *Orchestrator) Reverse(ctx context.Context, transferID int64) error {
	return o.store.InTx(ctx, func(tx *sql.Tx) error {
		rec, err := o.transfers.Get(ctx, tx, transferID)
		if err != nil {
			return err
		}
		return o.reverseIn(ctx, tx, rec)
	})
}

// ReverseCascade reverses every non-reversed transfer matching the scope,
// each in its own transaction. A leg already reversed by another path is
// skipped. A failure stops the cascade; records reversed earlier stay
// reversed.
func (o *Orchestrator) ReverseCascade(ctx context.Context, kind model.AccountKind, accountID int64, scope CascadeScope) (int, error) {
	var (
		recs []model.TransferRecord
		err  error
	)
	switch scope {
	case ScopeFromAccount:
		recs, err = o.transfers.ListNonReversedFrom(ctx, o.store.DB(), kind, accountID)
	case ScopeTouchingAccount:
		recs, err = o.transfers.ListNonReversedTouching(ctx, o.store.DB(), kind, accountID)
	default:
		return 0, model.NewValidationError("scope", "unknown cascade scope %d", int(scope))
	}
	if err != nil {
		return 0, err
	}

	reversed := 0
	for _, rec := range recs {
		err := o.store.InTx(ctx, func(tx *sql.Tx) error {
			return o.reverseIn(ctx, tx, rec)
		})
		if err != nil {
			return reversed, fmt.Errorf("reversing transfer %d (%d of %d reversed): %w",
				rec.ID, reversed, len(recs), err)
		}
		reversed++
	}

	o.log.Info("reversal cascade completed",
		zap.String("accountKind", kind.String()),
		zap.Int64("accountId", accountID),
		zap.Int("reversed", reversed))
	return reversed, nil
}

// reverseIn undoes whichever underlying ledger transactions still stand and
// flips the record's reversed flag, all inside the caller's transaction.
func (o *Orchestrator) reverseIn(ctx context.Context, q *sql.Tx, rec model.TransferRecord) error {
	if rec.Reversed {
		return nil
	}

	if err := o.undoLeg(ctx, q, rec.FromAccount, rec.FromTransactionID); err != nil {
		return fmt.Errorf("undoing source leg of transfer %d: %w", rec.ID, err)
	}
	if err := o.undoLeg(ctx, q, rec.ToAccount, rec.ToTransactionID); err != nil {
		return fmt.Errorf("undoing destination leg of transfer %d: %w", rec.ID, err)
	}

	if _, err := o.transfers.MarkReversed(ctx, q, rec.ID); err != nil {
		return err
	}

	o.log.Debug("transfer reversed", zap.Int64("transferId", rec.ID))
	return nil
}

func (o *Orchestrator) undoLeg(ctx context.Context, q *sql.Tx, accountRef model.AccountRef, txnID int64) error {
	var err error
	switch {
	case accountRef.Kind.IsSavings():
		err = o.savings.UndoTransaction(ctx, q, accountRef.AccountID, txnID)
	case accountRef.Kind.IsLoan():
		err = o.loans.ReverseTransfer(ctx, q, accountRef.AccountID, txnID)
	default:
		return model.NewValidationError("accountKind", "unknown account kind %d", int(accountRef.Kind))
	}

	// Another path (an account closure, an earlier cascade) may have undone
	// this transaction already; that is a skip, not an error.
	if errors.Is(err, ledger.ErrAlreadyReversed) {
		return nil
	}
	return err
}

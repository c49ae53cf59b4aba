// Package transfer executes atomic fund movements between accounts. Each
// execution is one all-or-nothing unit: both ledger legs, the transfer
// record and the journal hand-off commit together or not at all.
package transfer

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/corebank-dev/corebank/internal/journal"
	"github.com/corebank-dev/corebank/internal/ledger"
	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/store"
)

// SavingsLedger is the savings-side collaborator contract.
type SavingsLedger interface {
	Withdraw(ctx context.Context, q store.Querier, accountID int64, amount decimal.Decimal, date model.Date) (ledger.Txn, error)
	Deposit(ctx context.Context, q store.Querier, accountID int64, amount decimal.Decimal, date model.Date) (ledger.Txn, error)
	UndoTransaction(ctx context.Context, q store.Querier, accountID, txnID int64) error
}

// LoanLedger is the loan-side collaborator contract.
type LoanLedger interface {
	Repay(ctx context.Context, q store.Querier, loanID int64, amount decimal.Decimal, date model.Date) (ledger.Txn, error)
	ChargePayment(ctx context.Context, q store.Querier, loanID int64, amount decimal.Decimal, date model.Date) (ledger.Txn, error)
	Refund(ctx context.Context, q store.Querier, loanID int64, amount decimal.Decimal, date model.Date) (ledger.Txn, error)
	ReverseTransfer(ctx context.Context, q store.Querier, loanID, txnID int64) error
	Dues(ctx context.Context, q store.Querier, loanID int64) (model.LoanDues, error)
}

// JournalPoster receives the accounting bridge payload after a successful
// transfer.
type JournalPoster interface {
	PostTransferEntries(ctx context.Context, q store.Querier, payload journal.BridgePayload) error
}

// AccountLookup resolves account references.
type AccountLookup interface {
	Resolve(ctx context.Context, q store.Querier, accountID int64, kind model.AccountKind, currencyCode string) (model.AccountRef, error)
	ResolveOverpaidLoan(ctx context.Context, q store.Querier, accountID int64, kind model.AccountKind) (model.AccountRef, error)
}

// Orchestrator executes, records and reverses fund transfers.
type Orchestrator struct {
	store     *store.Store
	transfers *store.TransferStore
	lookup    AccountLookup
	savings   SavingsLedger
	loans     LoanLedger
	poster    JournalPoster
	log       *zap.Logger
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(st *store.Store, transfers *store.TransferStore, lkp AccountLookup, savings SavingsLedger, loans LoanLedger, poster JournalPoster, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:     st,
		transfers: transfers,
		lookup:    lkp,
		savings:   savings,
		loans:     loans,
		poster:    poster,
		log:       log,
	}
}

// pairKey keys the dispatch table on the (from, to) account kinds.
type pairKey struct {
	from, to model.AccountKind
}

// legOutcome is what a strategy produces: the two underlying transactions.
type legOutcome struct {
	fromTxn ledger.Txn
	toTxn   ledger.Txn
}

type strategy func(o *Orchestrator, ctx context.Context, q store.Querier, cmd model.CreateTransfer) (legOutcome, error)

// strategies is the closed set of supported transfer shapes. Any pair not
// present is rejected before any mutation.
var strategies = map[pairKey]strategy{
	{model.AccountKindSavings, model.AccountKindSavings}: (*Orchestrator).savingsToSavings,
	{model.AccountKindSavings, model.AccountKindLoan}:    (*Orchestrator).savingsToLoan,
	{model.AccountKindLoan, model.AccountKindSavings}:    (*Orchestrator).loanToSavings,
}

// Execute runs one fund movement as a single atomic unit and returns the
// resulting transfer record, or fails with no partial effect.
func (o *Orchestrator) Execute(ctx context.Context, cmd model.CreateTransfer) (model.TransferRecord, error) {
	var rec model.TransferRecord
	err := o.store.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = o.ExecuteIn(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return model.TransferRecord{}, err
	}
	return rec, nil
}

// ExecuteIn runs one fund movement inside the caller's transaction. Callers
// composing a larger atomic unit (the scheduler) use this directly.
func (o *Orchestrator) ExecuteIn(ctx context.Context, q store.Querier, cmd model.CreateTransfer) (model.TransferRecord, error) {
	if err := validate(cmd); err != nil {
		return model.TransferRecord{}, err
	}
	if cmd.TransferKind == 0 {
		cmd.TransferKind = defaultTransferKind(cmd.ToAccountKind)
	}

	run, ok := strategies[pairKey{cmd.FromAccountKind, cmd.ToAccountKind}]
	if !ok {
		return model.TransferRecord{}, &model.UnsupportedTransferKindError{
			FromKind: cmd.FromAccountKind,
			ToKind:   cmd.ToAccountKind,
		}
	}

	fromRef, err := o.lookup.Resolve(ctx, q, cmd.FromAccountID, cmd.FromAccountKind, "")
	if err != nil {
		return model.TransferRecord{}, err
	}
	toRef, err := o.lookup.Resolve(ctx, q, cmd.ToAccountID, cmd.ToAccountKind, "")
	if err != nil {
		return model.TransferRecord{}, err
	}
	if fromRef.CurrencyCode != toRef.CurrencyCode {
		return model.TransferRecord{}, model.NewValidationError("currencyCode",
			"accounts use different currencies: %s and %s", fromRef.CurrencyCode, toRef.CurrencyCode)
	}

	outcome, err := run(o, ctx, q, cmd)
	if err != nil {
		return model.TransferRecord{}, err
	}

	rec := model.TransferRecord{
		FromAccount:       fromRef,
		ToAccount:         toRef,
		TransferKind:      cmd.TransferKind,
		Amount:            cmd.Amount,
		CurrencyCode:      fromRef.CurrencyCode,
		TransferDate:      cmd.TransferDate,
		Description:       cmd.Description,
		FromTransactionID: outcome.fromTxn.ID,
		ToTransactionID:   outcome.toTxn.ID,
	}
	rec.ID, err = o.transfers.Insert(ctx, q, rec)
	if err != nil {
		return model.TransferRecord{}, err
	}

	payload := journal.BridgePayload{
		TransferID:   rec.ID,
		OfficeID:     fromRef.OfficeID,
		CurrencyCode: rec.CurrencyCode,
		EntryDate:    rec.TransferDate,
		Legs: []journal.BridgeLeg{
			{
				AccountKind:    fromRef.Kind,
				AccountID:      fromRef.AccountID,
				TransactionRef: outcome.fromTxn.ExternalRef,
				Direction:      journal.DirectionDebit,
				Amount:         cmd.Amount,
			},
			{
				AccountKind:    toRef.Kind,
				AccountID:      toRef.AccountID,
				TransactionRef: outcome.toTxn.ExternalRef,
				Direction:      journal.DirectionCredit,
				Amount:         cmd.Amount,
			},
		},
	}
	if err := o.poster.PostTransferEntries(ctx, q, payload); err != nil {
		return model.TransferRecord{}, err
	}

	o.log.Debug("transfer executed",
		zap.Int64("transferId", rec.ID),
		zap.String("from", fromRef.Kind.String()),
		zap.Int64("fromAccountId", fromRef.AccountID),
		zap.String("to", toRef.Kind.String()),
		zap.Int64("toAccountId", toRef.AccountID),
		zap.String("amount", cmd.Amount.String()))
	return rec, nil
}

// RefundByTransfer moves an overpaid loan balance into a savings account.
// The amount must not exceed the loan's current overpaid balance.
func (o *Orchestrator) RefundByTransfer(ctx context.Context, cmd model.CreateTransfer) (model.TransferRecord, error) {
	var rec model.TransferRecord
	err := o.store.InTx(ctx, func(tx *sql.Tx) error {
		loanRef, err := o.lookup.ResolveOverpaidLoan(ctx, tx, cmd.FromAccountID, cmd.FromAccountKind)
		if err != nil {
			return err
		}
		available := loanRef.AmountAvailableForTransfer
		if !available.IsPositive() || cmd.Amount.GreaterThan(available) {
			return model.NewValidationError("transferAmount",
				"amount %s exceeds overpaid balance %s on loan %d", cmd.Amount, available, cmd.FromAccountID)
		}
		rec, err = o.ExecuteIn(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return model.TransferRecord{}, err
	}
	return rec, nil
}

func (o *Orchestrator) savingsToSavings(ctx context.Context, q store.Querier, cmd model.CreateTransfer) (legOutcome, error) {
	withdrawal, err := o.savings.Withdraw(ctx, q, cmd.FromAccountID, cmd.Amount, cmd.TransferDate)
	if err != nil {
		return legOutcome{}, err
	}
	deposit, err := o.savings.Deposit(ctx, q, cmd.ToAccountID, cmd.Amount, cmd.TransferDate)
	if err != nil {
		return legOutcome{}, err
	}
	return legOutcome{fromTxn: withdrawal, toTxn: deposit}, nil
}

func (o *Orchestrator) savingsToLoan(ctx context.Context, q store.Querier, cmd model.CreateTransfer) (legOutcome, error) {
	withdrawal, err := o.savings.Withdraw(ctx, q, cmd.FromAccountID, cmd.Amount, cmd.TransferDate)
	if err != nil {
		return legOutcome{}, err
	}

	var loanTxn ledger.Txn
	if cmd.TransferKind.IsChargePayment() {
		loanTxn, err = o.loans.ChargePayment(ctx, q, cmd.ToAccountID, cmd.Amount, cmd.TransferDate)
	} else {
		loanTxn, err = o.loans.Repay(ctx, q, cmd.ToAccountID, cmd.Amount, cmd.TransferDate)
	}
	if err != nil {
		return legOutcome{}, err
	}
	return legOutcome{fromTxn: withdrawal, toTxn: loanTxn}, nil
}

func (o *Orchestrator) loanToSavings(ctx context.Context, q store.Querier, cmd model.CreateTransfer) (legOutcome, error) {
	refund, err := o.loans.Refund(ctx, q, cmd.FromAccountID, cmd.Amount, cmd.TransferDate)
	if err != nil {
		return legOutcome{}, err
	}
	deposit, err := o.savings.Deposit(ctx, q, cmd.ToAccountID, cmd.Amount, cmd.TransferDate)
	if err != nil {
		return legOutcome{}, err
	}
	return legOutcome{fromTxn: refund, toTxn: deposit}, nil
}

func validate(cmd model.CreateTransfer) error {
	if !cmd.Amount.IsPositive() {
		return model.NewValidationError("transferAmount", "amount must be positive, got %s", cmd.Amount)
	}
	if cmd.TransferDate.IsZero() {
		return model.NewValidationError("transferDate", "transfer date is required")
	}
	if cmd.FromAccountKind == cmd.ToAccountKind && cmd.FromAccountID == cmd.ToAccountID {
		return model.NewValidationError("toAccountId", "source and destination accounts are the same")
	}
	if cmd.TransferKind != 0 {
		if _, err := model.TransferKindFromCode(cmd.TransferKind.Code()); err != nil {
			return model.NewValidationError("transferKind", "unknown transfer kind code %d", cmd.TransferKind.Code())
		}
	}
	return nil
}

// defaultTransferKind picks the kind an unmarked command implies: money
// landing on a loan is a repayment, anything else a plain account transfer.
func defaultTransferKind(to model.AccountKind) model.TransferKind {
	if to.IsLoan() {
		return model.TransferLoanRepayment
	}
	return model.TransferAccountTransfer
}

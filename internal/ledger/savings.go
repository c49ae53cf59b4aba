package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/ref"
	"github.com/corebank-dev/corebank/internal/store"
)

// ErrAlreadyReversed is returned when undoing a transaction that some other
// path has already reversed. Cascade callers treat it as a skip.
var ErrAlreadyReversed = errors.New("transaction already reversed")

// Txn identifies one ledger transaction created by a transfer leg.
type Txn struct {
	ID          int64
	ExternalRef string
}

// SavingsAccount is the persisted state of one savings account. Account
// administration itself is outside this core; the struct exists for seeding
// and projections.
type SavingsAccount struct {
	ID                int64
	ClientID          int64
	OfficeID          int64
	CurrencyCode      string
	Status            model.AccountStatus
	Balance           decimal.Decimal
	TransferFeeAmount decimal.Decimal
	FeeOnTransfer     bool
}

// SavingsLedger applies balance-changing transactions to savings accounts.
type SavingsLedger struct{}

// NewSavingsLedger creates a SavingsLedger.
func NewSavingsLedger() *SavingsLedger { return &SavingsLedger{} }

// CreateAccount inserts a savings account row. Used by seeding and tests.
func (l *SavingsLedger) CreateAccount(ctx context.Context, q store.Querier, a SavingsAccount) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO savings_accounts (id, client_id, office_id, currency_code, status, balance, transfer_fee_amount, fee_on_transfer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClientID, a.OfficeID, a.CurrencyCode, int(a.Status),
		a.Balance.String(), a.TransferFeeAmount.String(), boolToInt(a.FeeOnTransfer))
	if err != nil {
		return fmt.Errorf("creating savings account %d: %w", a.ID, err)
	}
	return nil
}

// GetAccount loads one savings account.
func (l *SavingsLedger) GetAccount(ctx context.Context, q store.Querier, accountID int64) (SavingsAccount, error) {
	var (
		a            SavingsAccount
		status       int
		balance, fee string
		feeFlag      int
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, client_id, office_id, currency_code, status, balance, transfer_fee_amount, fee_on_transfer
		FROM savings_accounts WHERE id = ?`, accountID).
		Scan(&a.ID, &a.ClientID, &a.OfficeID, &a.CurrencyCode, &status, &balance, &fee, &feeFlag)
	if errors.Is(err, sql.ErrNoRows) {
		return SavingsAccount{}, &model.NotFoundError{Resource: "savings account", ID: accountID}
	}
	if err != nil {
		return SavingsAccount{}, fmt.Errorf("loading savings account %d: %w", accountID, err)
	}
	a.Status = model.AccountStatus(status)
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return SavingsAccount{}, fmt.Errorf("parsing balance %q: %w", balance, err)
	}
	if a.TransferFeeAmount, err = decimal.NewFromString(fee); err != nil {
		return SavingsAccount{}, fmt.Errorf("parsing transfer fee %q: %w", fee, err)
	}
	a.FeeOnTransfer = feeFlag != 0
	return a, nil
}

// Withdraw debits amount from the account, applying the account's transfer
// withdrawal fee as a separate linked transaction when the flag is set.
// Fails with InsufficientBalanceError when the balance cannot cover both.
func (l *SavingsLedger) Withdraw(ctx context.Context, q store.Querier, accountID int64, amount decimal.Decimal, date model.Date) (Txn, error) {
	a, err := l.GetAccount(ctx, q, accountID)
	if err != nil {
		return Txn{}, err
	}

	fee := decimal.Zero
	if a.FeeOnTransfer && a.TransferFeeAmount.IsPositive() {
		fee = a.TransferFeeAmount
	}

	total := amount.Add(fee)
	if a.Balance.LessThan(total) {
		return Txn{}, &model.InsufficientBalanceError{
			AccountID: accountID,
			Kind:      model.AccountKindSavings,
			Requested: total,
			Available: a.Balance,
		}
	}

	txn, err := l.insertTxn(ctx, q, accountID, nil, "withdrawal", amount, date)
	if err != nil {
		return Txn{}, err
	}
	if fee.IsPositive() {
		if _, err := l.insertTxn(ctx, q, accountID, &txn.ID, "withdrawal-fee", fee, date); err != nil {
			return Txn{}, err
		}
	}

	if err := l.setBalance(ctx, q, accountID, a.Balance.Sub(total)); err != nil {
		return Txn{}, err
	}
	return txn, nil
}

// Deposit credits amount to the account.
func (l *SavingsLedger) Deposit(ctx context.Context, q store.Querier, accountID int64, amount decimal.Decimal, date model.Date) (Txn, error) {
	a, err := l.GetAccount(ctx, q, accountID)
	if err != nil {
		return Txn{}, err
	}

	txn, err := l.insertTxn(ctx, q, accountID, nil, "deposit", amount, date)
	if err != nil {
		return Txn{}, err
	}
	if err := l.setBalance(ctx, q, accountID, a.Balance.Add(amount)); err != nil {
		return Txn{}, err
	}
	return txn, nil
}

// UndoTransaction reverses one savings transaction and any linked fee
// transaction, restoring the account balance. Returns ErrAlreadyReversed if
// the transaction was reversed by another path.
func (l *SavingsLedger) UndoTransaction(ctx context.Context, q store.Querier, accountID, txnID int64) error {
	var (
		txnType, amountStr string
		reversed           int
	)
	err := q.QueryRowContext(ctx,
		`SELECT txn_type, amount, reversed FROM savings_transactions WHERE id = ? AND account_id = ?`,
		txnID, accountID).Scan(&txnType, &amountStr, &reversed)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.NotFoundError{Resource: "savings transaction", ID: txnID}
	}
	if err != nil {
		return fmt.Errorf("loading savings transaction %d: %w", txnID, err)
	}
	if reversed != 0 {
		return ErrAlreadyReversed
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return fmt.Errorf("parsing amount %q: %w", amountStr, err)
	}

	delta := amount
	if txnType == "deposit" {
		delta = amount.Neg()
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE savings_transactions SET reversed = 1 WHERE id = ?`, txnID); err != nil {
		return fmt.Errorf("reversing savings transaction %d: %w", txnID, err)
	}

	a, err := l.GetAccount(ctx, q, accountID)
	if err != nil {
		return err
	}
	balance := a.Balance.Add(delta)

	// A withdrawal may carry a linked fee transaction; undo that too.
	rows, err := q.QueryContext(ctx,
		`SELECT id, amount FROM savings_transactions WHERE parent_id = ? AND reversed = 0`, txnID)
	if err != nil {
		return fmt.Errorf("loading linked transactions for %d: %w", txnID, err)
	}
	defer rows.Close()

	type child struct {
		id     int64
		amount decimal.Decimal
	}
	var children []child
	for rows.Next() {
		var c child
		var amt string
		if err := rows.Scan(&c.id, &amt); err != nil {
			return fmt.Errorf("scanning linked transaction: %w", err)
		}
		if c.amount, err = decimal.NewFromString(amt); err != nil {
			return fmt.Errorf("parsing amount %q: %w", amt, err)
		}
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading linked transactions for %d: %w", txnID, err)
	}

	for _, c := range children {
		if _, err := q.ExecContext(ctx,
			`UPDATE savings_transactions SET reversed = 1 WHERE id = ?`, c.id); err != nil {
			return fmt.Errorf("reversing linked transaction %d: %w", c.id, err)
		}
		balance = balance.Add(c.amount)
	}

	return l.setBalance(ctx, q, accountID, balance)
}

func (l *SavingsLedger) insertTxn(ctx context.Context, q store.Querier, accountID int64, parentID *int64, txnType string, amount decimal.Decimal, date model.Date) (Txn, error) {
	externalRef := ref.NewExternal()
	res, err := q.ExecContext(ctx, `
		INSERT INTO savings_transactions (account_id, parent_id, txn_type, amount, txn_date, reversed, external_ref)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		accountID, parentID, txnType, amount.String(), date.String(), externalRef)
	if err != nil {
		return Txn{}, fmt.Errorf("inserting savings %s: %w", txnType, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Txn{}, fmt.Errorf("reading savings transaction id: %w", err)
	}
	return Txn{ID: id, ExternalRef: externalRef}, nil
}

func (l *SavingsLedger) setBalance(ctx context.Context, q store.Querier, accountID int64, balance decimal.Decimal) error {
	_, err := q.ExecContext(ctx,
		`UPDATE savings_accounts SET balance = ? WHERE id = ?`, balance.String(), accountID)
	if err != nil {
		return fmt.Errorf("updating balance of savings account %d: %w", accountID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

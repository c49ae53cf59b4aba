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

// Loan is the persisted state of one loan account: the outstanding dues
// components, the next due date and any overpaid balance.
type Loan struct {
	ID           int64
	ClientID     int64
	OfficeID     int64
	CurrencyCode string
	Status       model.AccountStatus
	PrincipalDue decimal.Decimal
	InterestDue  decimal.Decimal
	FeeDue       decimal.Decimal
	PenaltyDue   decimal.Decimal
	DueDate      model.Date // zero = nothing scheduled
	Overpaid     decimal.Decimal
}

// LoanLedger applies repayments, charge payments and refunds to loans.
type LoanLedger struct{}

// NewLoanLedger creates a LoanLedger.
func NewLoanLedger() *LoanLedger { return &LoanLedger{} }

// CreateLoan inserts a loan row. Used by seeding and tests.
func (l *LoanLedger) CreateLoan(ctx context.Context, q store.Querier, loan Loan) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO loans (id, client_id, office_id, currency_code, status, principal_due, interest_due, fee_due, penalty_due, due_date, overpaid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.ID, loan.ClientID, loan.OfficeID, loan.CurrencyCode, int(loan.Status),
		loan.PrincipalDue.String(), loan.InterestDue.String(), loan.FeeDue.String(),
		loan.PenaltyDue.String(), nullDate(loan.DueDate), loan.Overpaid.String())
	if err != nil {
		return fmt.Errorf("creating loan %d: %w", loan.ID, err)
	}
	return nil
}

// GetLoan loads one loan.
func (l *LoanLedger) GetLoan(ctx context.Context, q store.Querier, loanID int64) (Loan, error) {
	var (
		loan    Loan
		status  int
		dueDate sql.NullString

		principal, interest, fee, penalty, over string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, client_id, office_id, currency_code, status, principal_due, interest_due, fee_due, penalty_due, due_date, overpaid
		FROM loans WHERE id = ?`, loanID).
		Scan(&loan.ID, &loan.ClientID, &loan.OfficeID, &loan.CurrencyCode, &status,
			&principal, &interest, &fee, &penalty, &dueDate, &over)
	if errors.Is(err, sql.ErrNoRows) {
		return Loan{}, &model.NotFoundError{Resource: "loan", ID: loanID}
	}
	if err != nil {
		return Loan{}, fmt.Errorf("loading loan %d: %w", loanID, err)
	}
	loan.Status = model.AccountStatus(status)
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&loan.PrincipalDue, principal},
		{&loan.InterestDue, interest},
		{&loan.FeeDue, fee},
		{&loan.PenaltyDue, penalty},
		{&loan.Overpaid, over},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return Loan{}, fmt.Errorf("parsing loan %d amount %q: %w", loanID, f.src, err)
		}
	}
	if dueDate.Valid {
		if loan.DueDate, err = model.ParseDate(dueDate.String); err != nil {
			return Loan{}, err
		}
	}
	return loan, nil
}

// Dues returns the loan's current outstanding dues snapshot.
func (l *LoanLedger) Dues(ctx context.Context, q store.Querier, loanID int64) (model.LoanDues, error) {
	loan, err := l.GetLoan(ctx, q, loanID)
	if err != nil {
		return model.LoanDues{}, err
	}
	return model.LoanDues{
		LoanID:    loanID,
		DueDate:   loan.DueDate,
		HasDue:    !loan.DueDate.IsZero(),
		Principal: loan.PrincipalDue,
		Interest:  loan.InterestDue,
		Fees:      loan.FeeDue,
		Penalty:   loan.PenaltyDue,
	}, nil
}

// Overpaid returns the loan's current overpaid balance.
func (l *LoanLedger) Overpaid(ctx context.Context, q store.Querier, loanID int64) (decimal.Decimal, error) {
	loan, err := l.GetLoan(ctx, q, loanID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return loan.Overpaid, nil
}

// Repay applies amount as a loan repayment, settling penalty, fees, interest
// and then principal; any excess becomes overpaid balance.
func (l *LoanLedger) Repay(ctx context.Context, q store.Querier, loanID int64, amount decimal.Decimal, date model.Date) (Txn, error) {
	return l.apply(ctx, q, loanID, "repayment", amount, date, false)
}

// ChargePayment applies amount against the loan's outstanding fees, with any
// excess settling the remaining dues in the usual order.
func (l *LoanLedger) ChargePayment(ctx context.Context, q store.Querier, loanID int64, amount decimal.Decimal, date model.Date) (Txn, error) {
	return l.apply(ctx, q, loanID, "charge-payment", amount, date, true)
}

func (l *LoanLedger) apply(ctx context.Context, q store.Querier, loanID int64, txnType string, amount decimal.Decimal, date model.Date, feesFirst bool) (Txn, error) {
	loan, err := l.GetLoan(ctx, q, loanID)
	if err != nil {
		return Txn{}, err
	}

	remaining := amount
	var penalty, fees, interest, principal decimal.Decimal

	take := func(due decimal.Decimal) decimal.Decimal {
		portion := decimal.Min(due, remaining)
		remaining = remaining.Sub(portion)
		return portion
	}

	if feesFirst {
		fees = take(loan.FeeDue)
		penalty = take(loan.PenaltyDue)
	} else {
		penalty = take(loan.PenaltyDue)
		fees = take(loan.FeeDue)
	}
	interest = take(loan.InterestDue)
	principal = take(loan.PrincipalDue)
	overpaidDelta := remaining

	txn, err := l.insertTxn(ctx, q, loanID, txnType, amount, portions{
		principal: principal, interest: interest, fees: fees,
		penalty: penalty, overpaid: overpaidDelta,
	}, date)
	if err != nil {
		return Txn{}, err
	}

	loan.PenaltyDue = loan.PenaltyDue.Sub(penalty)
	loan.FeeDue = loan.FeeDue.Sub(fees)
	loan.InterestDue = loan.InterestDue.Sub(interest)
	loan.PrincipalDue = loan.PrincipalDue.Sub(principal)
	loan.Overpaid = loan.Overpaid.Add(overpaidDelta)
	if err := l.saveDues(ctx, q, loan); err != nil {
		return Txn{}, err
	}
	return txn, nil
}

// Refund reduces the loan's overpaid balance by amount. Fails with
// InsufficientBalanceError when the overpaid balance cannot cover it.
func (l *LoanLedger) Refund(ctx context.Context, q store.Querier, loanID int64, amount decimal.Decimal, date model.Date) (Txn, error) {
	loan, err := l.GetLoan(ctx, q, loanID)
	if err != nil {
		return Txn{}, err
	}
	if loan.Overpaid.LessThan(amount) {
		return Txn{}, &model.InsufficientBalanceError{
			AccountID: loanID,
			Kind:      model.AccountKindLoan,
			Requested: amount,
			Available: loan.Overpaid,
		}
	}

	txn, err := l.insertTxn(ctx, q, loanID, "refund", amount, portions{overpaid: amount.Neg()}, date)
	if err != nil {
		return Txn{}, err
	}

	loan.Overpaid = loan.Overpaid.Sub(amount)
	if err := l.saveDues(ctx, q, loan); err != nil {
		return Txn{}, err
	}
	return txn, nil
}

// ReverseTransfer undoes one loan transaction, restoring the dues components
// and overpaid balance it settled. Returns ErrAlreadyReversed if another path
// got there first.
func (l *LoanLedger) ReverseTransfer(ctx context.Context, q store.Querier, loanID, txnID int64) error {
	var (
		reversed int

		principal, interest, fees, penalty, over string
	)
	err := q.QueryRowContext(ctx, `
		SELECT reversed, principal_portion, interest_portion, fee_portion, penalty_portion, overpaid_delta
		FROM loan_transactions WHERE id = ? AND loan_id = ?`, txnID, loanID).
		Scan(&reversed, &principal, &interest, &fees, &penalty, &over)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.NotFoundError{Resource: "loan transaction", ID: txnID}
	}
	if err != nil {
		return fmt.Errorf("loading loan transaction %d: %w", txnID, err)
	}
	if reversed != 0 {
		return ErrAlreadyReversed
	}

	var p portions
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.principal, principal}, {&p.interest, interest},
		{&p.fees, fees}, {&p.penalty, penalty}, {&p.overpaid, over},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return fmt.Errorf("parsing portion %q: %w", f.src, err)
		}
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE loan_transactions SET reversed = 1 WHERE id = ?`, txnID); err != nil {
		return fmt.Errorf("reversing loan transaction %d: %w", txnID, err)
	}

	loan, err := l.GetLoan(ctx, q, loanID)
	if err != nil {
		return err
	}
	loan.PrincipalDue = loan.PrincipalDue.Add(p.principal)
	loan.InterestDue = loan.InterestDue.Add(p.interest)
	loan.FeeDue = loan.FeeDue.Add(p.fees)
	loan.PenaltyDue = loan.PenaltyDue.Add(p.penalty)
	loan.Overpaid = loan.Overpaid.Sub(p.overpaid)
	return l.saveDues(ctx, q, loan)
}

type portions struct {
	principal, interest, fees, penalty, overpaid decimal.Decimal
}

func (l *LoanLedger) insertTxn(ctx context.Context, q store.Querier, loanID int64, txnType string, amount decimal.Decimal, p portions, date model.Date) (Txn, error) {
	externalRef := ref.NewExternal()
	res, err := q.ExecContext(ctx, `
		INSERT INTO loan_transactions (loan_id, txn_type, amount, principal_portion, interest_portion, fee_portion, penalty_portion, overpaid_delta, txn_date, reversed, external_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		loanID, txnType, amount.String(), p.principal.String(), p.interest.String(),
		p.fees.String(), p.penalty.String(), p.overpaid.String(), date.String(), externalRef)
	if err != nil {
		return Txn{}, fmt.Errorf("inserting loan %s: %w", txnType, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Txn{}, fmt.Errorf("reading loan transaction id: %w", err)
	}
	return Txn{ID: id, ExternalRef: externalRef}, nil
}

func (l *LoanLedger) saveDues(ctx context.Context, q store.Querier, loan Loan) error {
	_, err := q.ExecContext(ctx, `
		UPDATE loans SET principal_due = ?, interest_due = ?, fee_due = ?, penalty_due = ?, overpaid = ?
		WHERE id = ?`,
		loan.PrincipalDue.String(), loan.InterestDue.String(), loan.FeeDue.String(),
		loan.PenaltyDue.String(), loan.Overpaid.String(), loan.ID)
	if err != nil {
		return fmt.Errorf("updating dues of loan %d: %w", loan.ID, err)
	}
	return nil
}

func nullDate(d model.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

package transfer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corebank-dev/corebank/internal/journal"
	"github.com/corebank-dev/corebank/internal/ledger"
	"github.com/corebank-dev/corebank/internal/lookup"
	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) model.Date { return model.NewDate(y, m, d) }

type fixture struct {
	store   *store.Store
	savings *ledger.SavingsLedger
	loans   *ledger.LoanLedger
	poster  *journal.Poster
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "corebank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	savings := ledger.NewSavingsLedger()
	loans := ledger.NewLoanLedger()
	poster := journal.NewPoster()
	orch := NewOrchestrator(st, store.NewTransferStore(), lookup.NewService(),
		savings, loans, poster, zap.NewNop())

	return &fixture{store: st, savings: savings, loans: loans, poster: poster, orch: orch}
}

func (f *fixture) seedSavings(t *testing.T, id int64, currency, balance string) {
	t.Helper()
	err := f.savings.CreateAccount(context.Background(), f.store.DB(), ledger.SavingsAccount{
		ID: id, ClientID: 1, OfficeID: 1, CurrencyCode: currency,
		Status: model.AccountStatusActive, Balance: dec(balance),
		TransferFeeAmount: decimal.Zero,
	})
	require.NoError(t, err)
}

func (f *fixture) seedLoan(t *testing.T, loan ledger.Loan) {
	t.Helper()
	require.NoError(t, f.loans.CreateLoan(context.Background(), f.store.DB(), loan))
}

func (f *fixture) savingsBalance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	a, err := f.savings.GetAccount(context.Background(), f.store.DB(), id)
	require.NoError(t, err)
	return a.Balance
}

func savingsToSavingsCmd(amount string) model.CreateTransfer {
	return model.CreateTransfer{
		FromAccountKind: model.AccountKindSavings,
		FromAccountID:   1,
		ToAccountKind:   model.AccountKindSavings,
		ToAccountID:     2,
		TransferKind:    model.TransferAccountTransfer,
		TransferDate:    date(2024, time.June, 1),
		Amount:          dec(amount),
		Description:     "monthly sweep",
	}
}

func TestExecute_SavingsToSavings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "500.00")
	f.seedSavings(t, 2, "USD", "100.00")

	rec, err := f.orch.Execute(ctx, savingsToSavingsCmd("150.00"))
	require.NoError(t, err)

	assert.NotZero(t, rec.ID)
	assert.Equal(t, "USD", rec.CurrencyCode)
	assert.False(t, rec.Reversed)
	assert.NotZero(t, rec.FromTransactionID)
	assert.NotZero(t, rec.ToTransactionID)
	assert.NotEqual(t, rec.FromTransactionID, rec.ToTransactionID)

	assert.True(t, f.savingsBalance(t, 1).Equal(dec("350.00")))
	assert.True(t, f.savingsBalance(t, 2).Equal(dec("250.00")))

	// One balanced pair of journal entries per transfer.
	n, err := f.poster.EntriesForTransfer(ctx, f.store.DB(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExecute_SavingsToLoanRepayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "500.00")
	f.seedLoan(t, ledger.Loan{
		ID: 10, ClientID: 1, OfficeID: 1, CurrencyCode: "USD",
		Status:       model.AccountStatusActive,
		PrincipalDue: dec("100.00"), InterestDue: dec("10.00"),
		FeeDue: dec("5.00"), PenaltyDue: dec("2.00"),
		DueDate: date(2024, time.June, 1), Overpaid: decimal.Zero,
	})

	rec, err := f.orch.Execute(ctx, model.CreateTransfer{
		FromAccountKind: model.AccountKindSavings,
		FromAccountID:   1,
		ToAccountKind:   model.AccountKindLoan,
		ToAccountID:     10,
		TransferKind:    model.TransferLoanRepayment,
		TransferDate:    date(2024, time.June, 1),
		Amount:          dec("117.00"),
	})
	require.NoError(t, err)
	assert.True(t, rec.ToAccount.Kind.IsLoan())

	assert.True(t, f.savingsBalance(t, 1).Equal(dec("383.00")))

	loan, err := f.loans.GetLoan(ctx, f.store.DB(), 10)
	require.NoError(t, err)
	assert.True(t, loan.PrincipalDue.IsZero())
	assert.True(t, loan.InterestDue.IsZero())
	assert.True(t, loan.FeeDue.IsZero())
	assert.True(t, loan.PenaltyDue.IsZero())
	assert.True(t, loan.Overpaid.IsZero())
}

func TestExecute_ChargePaymentSettlesFeesFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "500.00")
	f.seedLoan(t, ledger.Loan{
		ID: 10, ClientID: 1, OfficeID: 1, CurrencyCode: "USD",
		Status:       model.AccountStatusActive,
		PrincipalDue: dec("100.00"), InterestDue: dec("10.00"),
		FeeDue: dec("5.00"), PenaltyDue: dec("2.00"),
		DueDate: date(2024, time.June, 1), Overpaid: decimal.Zero,
	})

	_, err := f.orch.Execute(ctx, model.CreateTransfer{
		FromAccountKind: model.AccountKindSavings,
		FromAccountID:   1,
		ToAccountKind:   model.AccountKindLoan,
		ToAccountID:     10,
		TransferKind:    model.TransferChargePayment,
		TransferDate:    date(2024, time.June, 1),
		Amount:          dec("4.00"),
	})
	require.NoError(t, err)

	loan, err := f.loans.GetLoan(ctx, f.store.DB(), 10)
	require.NoError(t, err)
	assert.True(t, loan.FeeDue.Equal(dec("1.00")), "fees %s", loan.FeeDue)
	assert.True(t, loan.PenaltyDue.Equal(dec("2.00")))
}

func TestExecute_LoanToLoanUnsupported(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Execute(context.Background(), model.CreateTransfer{
		FromAccountKind: model.AccountKindLoan,
		FromAccountID:   1,
		ToAccountKind:   model.AccountKindLoan,
		ToAccountID:     2,
		TransferKind:    model.TransferAccountTransfer,
		TransferDate:    date(2024, time.June, 1),
		Amount:          dec("10.00"),
	})
	var unsupported *model.UnsupportedTransferKindError
	require.ErrorAs(t, err, &unsupported)
}

func TestExecute_CurrencyMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "500.00")
	f.seedSavings(t, 2, "EUR", "100.00")

	_, err := f.orch.Execute(ctx, savingsToSavingsCmd("150.00"))
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "currencyCode", validation.Field)

	// Rejected before any mutation.
	assert.True(t, f.savingsBalance(t, 1).Equal(dec("500.00")))
	assert.True(t, f.savingsBalance(t, 2).Equal(dec("100.00")))
}

func TestExecute_InsufficientBalanceRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "100.00")
	f.seedSavings(t, 2, "USD", "100.00")

	_, err := f.orch.Execute(ctx, savingsToSavingsCmd("150.00"))
	var insufficient *model.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)

	assert.True(t, f.savingsBalance(t, 1).Equal(dec("100.00")))
	assert.True(t, f.savingsBalance(t, 2).Equal(dec("100.00")))

	// No transfer record survives the rollback.
	recs, err := store.NewTransferStore().ListByAccount(ctx, f.store.DB(), model.AccountKindSavings, 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestExecute_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Execute(context.Background(), savingsToSavingsCmd("0"))
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "transferAmount", validation.Field)
}

func TestExecute_RejectsSameAccount(t *testing.T) {
	f := newFixture(t)

	cmd := savingsToSavingsCmd("10.00")
	cmd.ToAccountID = cmd.FromAccountID
	_, err := f.orch.Execute(context.Background(), cmd)
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "toAccountId", validation.Field)
}

func TestExecute_DefaultsUnsetTransferKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "500.00")
	f.seedSavings(t, 2, "USD", "100.00")

	cmd := savingsToSavingsCmd("50.00")
	cmd.TransferKind = 0
	rec, err := f.orch.Execute(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, model.TransferAccountTransfer, rec.TransferKind)

	// The persisted record reads back and stays reversible.
	got, err := store.NewTransferStore().Get(ctx, f.store.DB(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferAccountTransfer, got.TransferKind)

	require.NoError(t, f.orch.Reverse(ctx, rec.ID))
	assert.True(t, f.savingsBalance(t, 1).Equal(dec("500.00")))
	assert.True(t, f.savingsBalance(t, 2).Equal(dec("100.00")))
}

func TestExecute_DefaultsLoanDestinationToRepayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "500.00")
	f.seedLoan(t, ledger.Loan{
		ID: 10, ClientID: 1, OfficeID: 1, CurrencyCode: "USD",
		Status:       model.AccountStatusActive,
		PrincipalDue: dec("100.00"), InterestDue: decimal.Zero,
		FeeDue: decimal.Zero, PenaltyDue: decimal.Zero,
		DueDate: date(2024, time.June, 1), Overpaid: decimal.Zero,
	})

	rec, err := f.orch.Execute(ctx, model.CreateTransfer{
		FromAccountKind: model.AccountKindSavings,
		FromAccountID:   1,
		ToAccountKind:   model.AccountKindLoan,
		ToAccountID:     10,
		TransferDate:    date(2024, time.June, 1),
		Amount:          dec("25.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransferLoanRepayment, rec.TransferKind)

	loan, err := f.loans.GetLoan(ctx, f.store.DB(), 10)
	require.NoError(t, err)
	assert.True(t, loan.PrincipalDue.Equal(dec("75.00")))
}

func TestExecute_RejectsUnknownTransferKind(t *testing.T) {
	f := newFixture(t)

	cmd := savingsToSavingsCmd("10.00")
	cmd.TransferKind = model.TransferKind(99)
	_, err := f.orch.Execute(context.Background(), cmd)
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "transferKind", validation.Field)
}

func TestRefundByTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "USD", "100.00")
	f.seedLoan(t, ledger.Loan{
		ID: 10, ClientID: 1, OfficeID: 1, CurrencyCode: "USD",
		Status:       model.AccountStatusOverpaid,
		PrincipalDue: decimal.Zero, InterestDue: decimal.Zero,
		FeeDue: decimal.Zero, PenaltyDue: decimal.Zero,
		Overpaid: dec("50.00"),
	})

	cmd := model.CreateTransfer{
		FromAccountKind: model.AccountKindLoan,
		FromAccountID:   10,
		ToAccountKind:   model.AccountKindSavings,
		ToAccountID:     1,
		TransferKind:    model.TransferAccountTransfer,
		TransferDate:    date(2024, time.June, 1),
		Amount:          dec("30.00"),
	}
	rec, err := f.orch.RefundByTransfer(ctx, cmd)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	assert.True(t, f.savingsBalance(t, 1).Equal(dec("130.00")))

	overpaid, err := f.loans.Overpaid(ctx, f.store.DB(), 10)
	require.NoError(t, err)
	assert.True(t, overpaid.Equal(dec("20.00")))

	// The remaining overpaid balance caps the next refund.
	cmd.Amount = dec("20.01")
	_, err = f.orch.RefundByTransfer(ctx, cmd)
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "transferAmount", validation.Field)
}

package scheduler

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
	"github.com/corebank-dev/corebank/internal/transfer"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) model.Date { return model.NewDate(y, m, d) }

type fixture struct {
	store        *store.Store
	savings      *ledger.SavingsLedger
	loans        *ledger.LoanLedger
	instructions *store.InstructionStore
	history      *store.HistoryStore
	runner       *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "corebank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	savings := ledger.NewSavingsLedger()
	loans := ledger.NewLoanLedger()
	instructions := store.NewInstructionStore()
	history := store.NewHistoryStore()
	orch := transfer.NewOrchestrator(st, store.NewTransferStore(), lookup.NewService(),
		savings, loans, journal.NewPoster(), zap.NewNop())

	runner := NewRunner(st, instructions, history, orch, loans, zap.NewNop())
	runner.now = func() time.Time { return time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC) }

	return &fixture{
		store:        st,
		savings:      savings,
		loans:        loans,
		instructions: instructions,
		history:      history,
		runner:       runner,
	}
}

func (f *fixture) seedSavings(t *testing.T, id int64, balance string) {
	t.Helper()
	err := f.savings.CreateAccount(context.Background(), f.store.DB(), ledger.SavingsAccount{
		ID: id, ClientID: id, OfficeID: 1, CurrencyCode: "USD",
		Status: model.AccountStatusActive, Balance: dec(balance),
		TransferFeeAmount: decimal.Zero,
	})
	require.NoError(t, err)
}

func (f *fixture) seedInstruction(t *testing.T, inst model.StandingInstruction) int64 {
	t.Helper()
	if inst.Status == 0 {
		inst.Status = model.InstructionActive
	}
	if inst.Priority == 0 {
		inst.Priority = model.PriorityMedium
	}
	id, err := f.instructions.Insert(context.Background(), f.store.DB(), inst)
	require.NoError(t, err)
	return id
}

func dailySweep(name string, from, to int64, amount string) model.StandingInstruction {
	return model.StandingInstruction{
		Name:                name,
		FromAccountKind:     model.AccountKindSavings,
		FromAccountID:       from,
		ToAccountKind:       model.AccountKindSavings,
		ToAccountID:         to,
		TransferKind:        model.TransferAccountTransfer,
		InstructionType:     model.InstructionFixed,
		Amount:              dec(amount),
		ValidFrom:           date(2024, time.June, 1),
		RecurrenceType:      model.RecurrencePeriodic,
		RecurrenceFrequency: model.FrequencyDays,
		RecurrenceInterval:  1,
	}
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	a, err := f.savings.GetAccount(context.Background(), f.store.DB(), id)
	require.NoError(t, err)
	return a.Balance
}

func TestRun_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "1000.00")
	f.seedSavings(t, 2, "5.00") // cannot cover its instruction
	f.seedSavings(t, 3, "1000.00")
	f.seedSavings(t, 9, "0.00")

	id1 := f.seedInstruction(t, dailySweep("sweep-one", 1, 9, "100.00"))
	id2 := f.seedInstruction(t, dailySweep("sweep-two", 2, 9, "100.00"))
	id3 := f.seedInstruction(t, dailySweep("sweep-three", 3, 9, "100.00"))

	asOf := date(2024, time.June, 1)
	err := f.runner.Run(ctx, asOf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep-two")
	assert.NotContains(t, err.Error(), "sweep-one")
	assert.NotContains(t, err.Error(), "sweep-three")

	// The failure did not block the instructions around it.
	assert.True(t, f.balance(t, 1).Equal(dec("900.00")))
	assert.True(t, f.balance(t, 2).Equal(dec("5.00")))
	assert.True(t, f.balance(t, 3).Equal(dec("900.00")))
	assert.True(t, f.balance(t, 9).Equal(dec("200.00")))

	// Successful runs advance the last run date; the failed one does not.
	for _, tc := range []struct {
		id  int64
		ran bool
	}{{id1, true}, {id2, false}, {id3, true}} {
		inst, err := f.instructions.Get(ctx, f.store.DB(), tc.id)
		require.NoError(t, err)
		if tc.ran {
			assert.True(t, inst.LastRunDate.Equal(asOf), "instruction %d", tc.id)
		} else {
			assert.True(t, inst.LastRunDate.IsZero(), "instruction %d", tc.id)
		}
	}

	// Every attempt left a history row, failure details included.
	entries, err := f.history.ListByInstruction(ctx, f.store.DB(), id2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ExecutionFailed, entries[0].Status)
	assert.Contains(t, entries[0].ErrorLog, "insufficient balance")

	entries, err = f.history.ListByInstruction(ctx, f.store.DB(), id1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ExecutionSuccess, entries[0].Status)
	assert.True(t, entries[0].Amount.Equal(dec("100.00")))
}

func TestRun_SameDayRerunSkipsExecuted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "1000.00")
	f.seedSavings(t, 9, "0.00")
	id := f.seedInstruction(t, dailySweep("sweep", 1, 9, "100.00"))

	asOf := date(2024, time.June, 1)
	require.NoError(t, f.runner.Run(ctx, asOf))
	require.NoError(t, f.runner.Run(ctx, asOf))

	assert.True(t, f.balance(t, 1).Equal(dec("900.00")))

	entries, err := f.history.ListByInstruction(ctx, f.store.DB(), id)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRun_FailedInstructionRetriesNextPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "50.00")
	f.seedSavings(t, 9, "0.00")
	id := f.seedInstruction(t, dailySweep("sweep", 1, 9, "100.00"))

	asOf := date(2024, time.June, 1)
	require.Error(t, f.runner.Run(ctx, asOf))

	// Fund the account; the same day's rerun picks the instruction up again.
	_, err := f.savings.Deposit(ctx, f.store.DB(), 1, dec("100.00"), asOf)
	require.NoError(t, err)

	require.NoError(t, f.runner.Run(ctx, asOf))
	assert.True(t, f.balance(t, 9).Equal(dec("100.00")))

	entries, err := f.history.ListByInstruction(ctx, f.store.DB(), id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ExecutionFailed, entries[0].Status)
	assert.Equal(t, model.ExecutionSuccess, entries[1].Status)
}

func TestRun_AsPerDuesTransfersLiveDues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "1000.00")
	require.NoError(t, f.loans.CreateLoan(ctx, f.store.DB(), ledger.Loan{
		ID: 10, ClientID: 1, OfficeID: 1, CurrencyCode: "USD",
		Status:       model.AccountStatusActive,
		PrincipalDue: dec("120.00"), InterestDue: dec("25.00"),
		FeeDue: dec("5.00"), PenaltyDue: decimal.Zero,
		DueDate: date(2024, time.June, 1), Overpaid: decimal.Zero,
	}))

	// The stored amount is stale on purpose; the live dues must win.
	f.seedInstruction(t, model.StandingInstruction{
		Name:            "loan-dues",
		FromAccountKind: model.AccountKindSavings,
		FromAccountID:   1,
		ToAccountKind:   model.AccountKindLoan,
		ToAccountID:     10,
		TransferKind:    model.TransferLoanRepayment,
		InstructionType: model.InstructionDues,
		Amount:          dec("999.00"),
		ValidFrom:       date(2024, time.May, 1),
		RecurrenceType:  model.RecurrenceAsPerDues,
	})

	require.NoError(t, f.runner.Run(ctx, date(2024, time.June, 1)))

	assert.True(t, f.balance(t, 1).Equal(dec("850.00")), "balance %s", f.balance(t, 1))
	loan, err := f.loans.GetLoan(ctx, f.store.DB(), 10)
	require.NoError(t, err)
	assert.True(t, loan.PrincipalDue.IsZero())
	assert.True(t, loan.InterestDue.IsZero())
	assert.True(t, loan.FeeDue.IsZero())
}

func TestRun_AsPerDuesSkipsOffDueDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "1000.00")
	require.NoError(t, f.loans.CreateLoan(ctx, f.store.DB(), ledger.Loan{
		ID: 10, ClientID: 1, OfficeID: 1, CurrencyCode: "USD",
		Status:       model.AccountStatusActive,
		PrincipalDue: dec("120.00"), InterestDue: decimal.Zero,
		FeeDue: decimal.Zero, PenaltyDue: decimal.Zero,
		DueDate: date(2024, time.June, 15), Overpaid: decimal.Zero,
	}))

	id := f.seedInstruction(t, model.StandingInstruction{
		Name:            "loan-dues",
		FromAccountKind: model.AccountKindSavings,
		FromAccountID:   1,
		ToAccountKind:   model.AccountKindLoan,
		ToAccountID:     10,
		TransferKind:    model.TransferLoanRepayment,
		InstructionType: model.InstructionDues,
		ValidFrom:       date(2024, time.May, 1),
		RecurrenceType:  model.RecurrenceAsPerDues,
	})

	require.NoError(t, f.runner.Run(ctx, date(2024, time.June, 1)))

	// Not due: no movement, no history, no last-run advance.
	assert.True(t, f.balance(t, 1).Equal(dec("1000.00")))
	entries, err := f.history.ListByInstruction(ctx, f.store.DB(), id)
	require.NoError(t, err)
	assert.Empty(t, entries)
	inst, err := f.instructions.Get(ctx, f.store.DB(), id)
	require.NoError(t, err)
	assert.True(t, inst.LastRunDate.IsZero())
}

func TestRun_IgnoresDisabledAndExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedSavings(t, 1, "1000.00")
	f.seedSavings(t, 9, "0.00")

	disabled := dailySweep("disabled", 1, 9, "100.00")
	disabled.Status = model.InstructionDisabled
	f.seedInstruction(t, disabled)

	expired := dailySweep("expired", 1, 9, "100.00")
	expired.ValidFrom = date(2024, time.January, 1)
	expired.ValidTill = date(2024, time.March, 1)
	f.seedInstruction(t, expired)

	require.NoError(t, f.runner.Run(ctx, date(2024, time.June, 1)))
	assert.True(t, f.balance(t, 1).Equal(dec("1000.00")))
}

func TestRun_UrgentRunsFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// 100.00 covers only one sweep; the urgent one must win the race.
	f.seedSavings(t, 1, "100.00")
	f.seedSavings(t, 9, "0.00")

	low := dailySweep("low-sweep", 1, 9, "100.00")
	low.Priority = model.PriorityLow
	lowID := f.seedInstruction(t, low)

	urgent := dailySweep("urgent-sweep", 1, 9, "100.00")
	urgent.Priority = model.PriorityUrgent
	urgentID := f.seedInstruction(t, urgent)

	err := f.runner.Run(ctx, date(2024, time.June, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low-sweep")

	urgentInst, err := f.instructions.Get(ctx, f.store.DB(), urgentID)
	require.NoError(t, err)
	assert.False(t, urgentInst.LastRunDate.IsZero())

	lowInst, err := f.instructions.Get(ctx, f.store.DB(), lowID)
	require.NoError(t, err)
	assert.True(t, lowInst.LastRunDate.IsZero())
}

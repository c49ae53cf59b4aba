package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank-dev/corebank/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "corebank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func date(y int, m time.Month, d int) model.Date { return model.NewDate(y, m, d) }

func baseInstruction(name string) model.StandingInstruction {
	return model.StandingInstruction{
		Name:                name,
		FromAccountKind:     model.AccountKindSavings,
		FromAccountID:       1,
		ToAccountKind:       model.AccountKindSavings,
		ToAccountID:         2,
		TransferKind:        model.TransferAccountTransfer,
		InstructionType:     model.InstructionFixed,
		Priority:            model.PriorityMedium,
		Status:              model.InstructionActive,
		Amount:              decimal.RequireFromString("25.00"),
		ValidFrom:           date(2024, time.January, 1),
		RecurrenceType:      model.RecurrencePeriodic,
		RecurrenceFrequency: model.FrequencyMonths,
		RecurrenceInterval:  1,
		RecurrenceOnDay:     1,
	}
}

func TestInstructionRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	is := NewInstructionStore()

	inst := baseInstruction("sweep")
	inst.ValidTill = date(2025, time.January, 1)
	id, err := is.Insert(ctx, st.DB(), inst)
	require.NoError(t, err)

	got, err := is.Get(ctx, st.DB(), id)
	require.NoError(t, err)
	assert.Equal(t, "sweep", got.Name)
	assert.Equal(t, model.AccountKindSavings, got.FromAccountKind)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, got.ValidFrom.Equal(date(2024, time.January, 1)))
	assert.True(t, got.ValidTill.Equal(date(2025, time.January, 1)))
	assert.True(t, got.LastRunDate.IsZero())
}

func TestListActiveCandidates_WindowEdges(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	is := NewInstructionStore()

	asOf := date(2024, time.June, 1)

	within := baseInstruction("within")
	withinID, err := is.Insert(ctx, st.DB(), within)
	require.NoError(t, err)

	notStarted := baseInstruction("not-started")
	notStarted.ValidFrom = date(2024, time.June, 2)
	_, err = is.Insert(ctx, st.DB(), notStarted)
	require.NoError(t, err)

	// The validity end is exclusive: an instruction expiring on asOf is out.
	expiring := baseInstruction("expiring")
	expiring.ValidTill = asOf
	_, err = is.Insert(ctx, st.DB(), expiring)
	require.NoError(t, err)

	openEnded := baseInstruction("open-ended")
	openEndedID, err := is.Insert(ctx, st.DB(), openEnded)
	require.NoError(t, err)

	got, err := is.ListActiveCandidates(ctx, st.DB(), asOf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, withinID, got[0].ID)
	assert.Equal(t, openEndedID, got[1].ID)
}

func TestListActiveCandidates_ExcludesAlreadyRun(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	is := NewInstructionStore()

	asOf := date(2024, time.June, 1)
	id, err := is.Insert(ctx, st.DB(), baseInstruction("sweep"))
	require.NoError(t, err)

	require.NoError(t, is.MarkRun(ctx, st.DB(), id, asOf))

	got, err := is.ListActiveCandidates(ctx, st.DB(), asOf)
	require.NoError(t, err)
	assert.Empty(t, got)

	// The next day it is a candidate again.
	got, err = is.ListActiveCandidates(ctx, st.DB(), asOf.AddDays(1))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListActiveCandidates_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	is := NewInstructionStore()

	low := baseInstruction("low")
	low.Priority = model.PriorityLow
	lowID, err := is.Insert(ctx, st.DB(), low)
	require.NoError(t, err)

	urgent := baseInstruction("urgent")
	urgent.Priority = model.PriorityUrgent
	urgentID, err := is.Insert(ctx, st.DB(), urgent)
	require.NoError(t, err)

	got, err := is.ListActiveCandidates(ctx, st.DB(), date(2024, time.June, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, urgentID, got[0].ID)
	assert.Equal(t, lowID, got[1].ID)
}

func TestInsert_DuplicateName(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	is := NewInstructionStore()

	_, err := is.Insert(ctx, st.DB(), baseInstruction("sweep"))
	require.NoError(t, err)

	_, err = is.Insert(ctx, st.DB(), baseInstruction("sweep"))
	var integrity *model.DataIntegrityError
	require.ErrorAs(t, err, &integrity)
}

func TestMarkReversed_FlipsOnce(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	ts := NewTransferStore()

	rec := model.TransferRecord{
		FromAccount:  model.AccountRef{AccountID: 1, Kind: model.AccountKindSavings},
		ToAccount:    model.AccountRef{AccountID: 2, Kind: model.AccountKindSavings},
		TransferKind: model.TransferAccountTransfer,
		Amount:       decimal.RequireFromString("10.00"),
		CurrencyCode: "USD",
		TransferDate: date(2024, time.June, 1),
	}
	id, err := ts.Insert(ctx, st.DB(), rec)
	require.NoError(t, err)

	flipped, err := ts.MarkReversed(ctx, st.DB(), id)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = ts.MarkReversed(ctx, st.DB(), id)
	require.NoError(t, err)
	assert.False(t, flipped)
}

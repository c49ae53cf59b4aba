package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountKindFromCode(t *testing.T) {
	k, err := AccountKindFromCode(1)
	require.NoError(t, err)
	assert.Equal(t, AccountKindLoan, k)
	assert.True(t, k.IsLoan())

	k, err = AccountKindFromCode(2)
	require.NoError(t, err)
	assert.Equal(t, AccountKindSavings, k)
	assert.True(t, k.IsSavings())

	_, err = AccountKindFromCode(7)
	assert.Error(t, err)
}

func TestTransferKindFromCode(t *testing.T) {
	k, err := TransferKindFromCode(3)
	require.NoError(t, err)
	assert.Equal(t, TransferChargePayment, k)
	assert.True(t, k.IsChargePayment())
	assert.False(t, TransferLoanRepayment.IsChargePayment())

	_, err = TransferKindFromCode(0)
	assert.Error(t, err)
}

func TestInstructionStatusFromCode(t *testing.T) {
	s, err := InstructionStatusFromCode(3)
	require.NoError(t, err)
	assert.Equal(t, InstructionDeleted, s)

	_, err = InstructionStatusFromCode(4)
	assert.Error(t, err)
}

func TestPriorityOrdering(t *testing.T) {
	// Lower code means more urgent; the scheduler sorts ascending.
	assert.Less(t, PriorityUrgent.Code(), PriorityHigh.Code())
	assert.Less(t, PriorityHigh.Code(), PriorityMedium.Code())
	assert.Less(t, PriorityMedium.Code(), PriorityLow.Code())
}

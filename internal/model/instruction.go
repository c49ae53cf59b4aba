package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StandingInstruction is a recurring or dues-triggered rule authorizing an
// automatic transfer between two accounts. It is never hard-deleted; its
// status transitions to disabled or deleted instead.
type StandingInstruction struct {
	ID              int64
	Name            string
	FromAccountKind AccountKind
	FromAccountID   int64
	ToAccountKind   AccountKind
	ToAccountID     int64
	TransferKind    TransferKind
	InstructionType InstructionType
	Priority        InstructionPriority
	Status          InstructionStatus

	// Amount is required for fixed instructions. For dues instructions it is
	// only a fallback; the live loan dues override it at run time.
	Amount decimal.Decimal

	ValidFrom Date
	ValidTill Date // zero = open-ended

	RecurrenceType      RecurrenceType
	RecurrenceFrequency PeriodFrequency
	RecurrenceInterval  int
	RecurrenceOnDay     int // 0 = unanchored
	RecurrenceOnMonth   int // 0 = unanchored; used only for yearly recurrence

	LastRunDate Date // zero = never run
}

// CreateStandingInstruction is the inbound command that creates an instruction.
type CreateStandingInstruction struct {
	Name            string
	FromAccountKind AccountKind
	FromAccountID   int64
	ToAccountKind   AccountKind
	ToAccountID     int64
	TransferKind    TransferKind
	InstructionType InstructionType
	Priority        InstructionPriority
	Status          InstructionStatus
	Amount          decimal.Decimal
	ValidFrom       Date
	ValidTill       Date

	RecurrenceType      RecurrenceType
	RecurrenceFrequency PeriodFrequency
	RecurrenceInterval  int
	RecurrenceOnDay     int
	RecurrenceOnMonth   int
}

// UpdateStandingInstruction carries partial updates; nil fields are left
// untouched.
type UpdateStandingInstruction struct {
	ID int64

	Priority            *InstructionPriority
	Status              *InstructionStatus
	Amount              *decimal.Decimal
	ValidFrom           *Date
	ValidTill           *Date
	InstructionType     *InstructionType
	RecurrenceType      *RecurrenceType
	RecurrenceFrequency *PeriodFrequency
	RecurrenceInterval  *int
	RecurrenceOnDay     *int
	RecurrenceOnMonth   *int
}

// ExecutionHistoryEntry is one append-only row per standing-instruction
// execution attempt. It is never mutated after insert.
type ExecutionHistoryEntry struct {
	ID            int64
	InstructionID int64
	Status        ExecutionStatus
	Amount        decimal.Decimal
	ExecutionTime time.Time
	ErrorLog      string
}

// ExecutionStatus is the outcome of one execution attempt.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

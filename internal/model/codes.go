package model

import "fmt"

// AccountKind classifies the two account families a transfer leg can touch.
type AccountKind int

const (
	AccountKindLoan    AccountKind = 1
	AccountKindSavings AccountKind = 2
)

// AccountKindFromCode maps a persisted integer code to an AccountKind.
func AccountKindFromCode(code int) (AccountKind, error) {
	switch AccountKind(code) {
	case AccountKindLoan, AccountKindSavings:
		return AccountKind(code), nil
	}
	return 0, fmt.Errorf("unknown account kind code %d", code)
}

func (k AccountKind) Code() int { return int(k) }

func (k AccountKind) String() string {
	switch k {
	case AccountKindLoan:
		return "loan"
	case AccountKindSavings:
		return "savings"
	}
	return fmt.Sprintf("accountKind(%d)", int(k))
}

// IsLoan reports whether k is the loan kind.
func (k AccountKind) IsLoan() bool { return k == AccountKindLoan }

// IsSavings reports whether k is the savings kind.
func (k AccountKind) IsSavings() bool { return k == AccountKindSavings }

// TransferKind distinguishes what a fund movement is for, which decides the
// entry point used on the destination leg.
type TransferKind int

const (
	TransferAccountTransfer  TransferKind = 1
	TransferLoanRepayment    TransferKind = 2
	TransferChargePayment    TransferKind = 3
	TransferInterestTransfer TransferKind = 4
)

// TransferKindFromCode maps a persisted integer code to a TransferKind.
func TransferKindFromCode(code int) (TransferKind, error) {
	switch TransferKind(code) {
	case TransferAccountTransfer, TransferLoanRepayment, TransferChargePayment, TransferInterestTransfer:
		return TransferKind(code), nil
	}
	return 0, fmt.Errorf("unknown transfer kind code %d", code)
}

func (t TransferKind) Code() int { return int(t) }

func (t TransferKind) String() string {
	switch t {
	case TransferAccountTransfer:
		return "account-transfer"
	case TransferLoanRepayment:
		return "loan-repayment"
	case TransferChargePayment:
		return "charge-payment"
	case TransferInterestTransfer:
		return "interest-transfer"
	}
	return fmt.Sprintf("transferKind(%d)", int(t))
}

// IsChargePayment reports whether the destination leg pays a loan charge
// instead of making a repayment.
func (t TransferKind) IsChargePayment() bool { return t == TransferChargePayment }

// RecurrenceType decides how a standing instruction's due dates are produced.
type RecurrenceType int

const (
	RecurrencePeriodic  RecurrenceType = 1
	RecurrenceAsPerDues RecurrenceType = 2
)

// RecurrenceTypeFromCode maps a persisted integer code to a RecurrenceType.
func RecurrenceTypeFromCode(code int) (RecurrenceType, error) {
	switch RecurrenceType(code) {
	case RecurrencePeriodic, RecurrenceAsPerDues:
		return RecurrenceType(code), nil
	}
	return 0, fmt.Errorf("unknown recurrence type code %d", code)
}

func (r RecurrenceType) Code() int { return int(r) }

func (r RecurrenceType) String() string {
	switch r {
	case RecurrencePeriodic:
		return "periodic"
	case RecurrenceAsPerDues:
		return "as-per-dues"
	}
	return fmt.Sprintf("recurrenceType(%d)", int(r))
}

// PeriodFrequency is the calendar unit of a periodic recurrence.
type PeriodFrequency int

const (
	FrequencyDays   PeriodFrequency = 0
	FrequencyWeeks  PeriodFrequency = 1
	FrequencyMonths PeriodFrequency = 2
	FrequencyYears  PeriodFrequency = 3
)

// PeriodFrequencyFromCode maps a persisted integer code to a PeriodFrequency.
func PeriodFrequencyFromCode(code int) (PeriodFrequency, error) {
	switch PeriodFrequency(code) {
	case FrequencyDays, FrequencyWeeks, FrequencyMonths, FrequencyYears:
		return PeriodFrequency(code), nil
	}
	return 0, fmt.Errorf("unknown period frequency code %d", code)
}

func (f PeriodFrequency) Code() int { return int(f) }

func (f PeriodFrequency) String() string {
	switch f {
	case FrequencyDays:
		return "days"
	case FrequencyWeeks:
		return "weeks"
	case FrequencyMonths:
		return "months"
	case FrequencyYears:
		return "years"
	}
	return fmt.Sprintf("periodFrequency(%d)", int(f))
}

// InstructionType decides where an instruction's transfer amount comes from.
type InstructionType int

const (
	InstructionFixed InstructionType = 1
	InstructionDues  InstructionType = 2
)

// InstructionTypeFromCode maps a persisted integer code to an InstructionType.
func InstructionTypeFromCode(code int) (InstructionType, error) {
	switch InstructionType(code) {
	case InstructionFixed, InstructionDues:
		return InstructionType(code), nil
	}
	return 0, fmt.Errorf("unknown instruction type code %d", code)
}

func (t InstructionType) Code() int { return int(t) }

func (t InstructionType) String() string {
	switch t {
	case InstructionFixed:
		return "fixed"
	case InstructionDues:
		return "dues"
	}
	return fmt.Sprintf("instructionType(%d)", int(t))
}

// InstructionStatus is the lifecycle state of a standing instruction.
// Instructions are never hard-deleted; deletion flips the status.
type InstructionStatus int

const (
	InstructionActive   InstructionStatus = 1
	InstructionDisabled InstructionStatus = 2
	InstructionDeleted  InstructionStatus = 3
)

// InstructionStatusFromCode maps a persisted integer code to an InstructionStatus.
func InstructionStatusFromCode(code int) (InstructionStatus, error) {
	switch InstructionStatus(code) {
	case InstructionActive, InstructionDisabled, InstructionDeleted:
		return InstructionStatus(code), nil
	}
	return 0, fmt.Errorf("unknown instruction status code %d", code)
}

func (s InstructionStatus) Code() int { return int(s) }

func (s InstructionStatus) String() string {
	switch s {
	case InstructionActive:
		return "active"
	case InstructionDisabled:
		return "disabled"
	case InstructionDeleted:
		return "deleted"
	}
	return fmt.Sprintf("instructionStatus(%d)", int(s))
}

// InstructionPriority orders instructions within one scheduler pass.
// Lower code means more urgent.
type InstructionPriority int

const (
	PriorityUrgent InstructionPriority = 1
	PriorityHigh   InstructionPriority = 2
	PriorityMedium InstructionPriority = 3
	PriorityLow    InstructionPriority = 4
)

// InstructionPriorityFromCode maps a persisted integer code to an InstructionPriority.
func InstructionPriorityFromCode(code int) (InstructionPriority, error) {
	switch InstructionPriority(code) {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return InstructionPriority(code), nil
	}
	return 0, fmt.Errorf("unknown instruction priority code %d", code)
}

func (p InstructionPriority) Code() int { return int(p) }

func (p InstructionPriority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return fmt.Sprintf("instructionPriority(%d)", int(p))
}

package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError describes a malformed or contradictory request, detected
// before any mutation.
type ValidationError struct {
	Field       string
	Description string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Description
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// NewValidationError builds a ValidationError for one field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Description: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown account, instruction or transfer.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// InsufficientBalanceError is raised by the ledger when a withdrawal or
// refund exceeds the available balance.
type InsufficientBalanceError struct {
	AccountID int64
	Kind      AccountKind
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s account %d: insufficient balance: requested %s, available %s",
		e.Kind, e.AccountID, e.Requested, e.Available)
}

// UnsupportedTransferKindError reports a (from, to) account-kind pair outside
// the three supported combinations.
type UnsupportedTransferKindError struct {
	FromKind AccountKind
	ToKind   AccountKind
}

func (e *UnsupportedTransferKindError) Error() string {
	return fmt.Sprintf("transfer from %s to %s is not supported", e.FromKind, e.ToKind)
}

// DataIntegrityError reports a persistence-level constraint violation mapped
// to a domain message, such as a duplicate instruction name.
type DataIntegrityError struct {
	Message string
	Cause   error
}

func (e *DataIntegrityError) Error() string { return e.Message }

func (e *DataIntegrityError) Unwrap() error { return e.Cause }

// ErrPlatformUnavailable signals a downstream outage. Interactive callers see
// it directly; the scheduler converts it into a failed history row.
var ErrPlatformUnavailable = errors.New("platform unavailable")

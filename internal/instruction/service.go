// Package instruction manages the standing-instruction lifecycle: validated
// creation, partial update, soft deletion and periodic due-date evaluation.
package instruction

import (
	"context"
	"database/sql"

	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/store"
)

// AccountLookup resolves account references during validation.
type AccountLookup interface {
	Resolve(ctx context.Context, q store.Querier, accountID int64, kind model.AccountKind, currencyCode string) (model.AccountRef, error)
}

// Service provides the standing-instruction write operations.
type Service struct {
	store        *store.Store
	instructions *store.InstructionStore
	lookup       AccountLookup
}

// NewService creates an instruction Service.
func NewService(st *store.Store, instructions *store.InstructionStore, lkp AccountLookup) *Service {
	return &Service{store: st, instructions: instructions, lookup: lkp}
}

// Create validates and persists a new standing instruction.
func (s *Service) Create(ctx context.Context, cmd model.CreateStandingInstruction) (model.StandingInstruction, error) {
	inst := model.StandingInstruction{
		Name:                cmd.Name,
		FromAccountKind:     cmd.FromAccountKind,
		FromAccountID:       cmd.FromAccountID,
		ToAccountKind:       cmd.ToAccountKind,
		ToAccountID:         cmd.ToAccountID,
		TransferKind:        cmd.TransferKind,
		InstructionType:     cmd.InstructionType,
		Priority:            cmd.Priority,
		Status:              cmd.Status,
		Amount:              cmd.Amount,
		ValidFrom:           cmd.ValidFrom,
		ValidTill:           cmd.ValidTill,
		RecurrenceType:      cmd.RecurrenceType,
		RecurrenceFrequency: cmd.RecurrenceFrequency,
		RecurrenceInterval:  cmd.RecurrenceInterval,
		RecurrenceOnDay:     cmd.RecurrenceOnDay,
		RecurrenceOnMonth:   cmd.RecurrenceOnMonth,
	}
	if inst.Status == 0 {
		inst.Status = model.InstructionActive
	}
	if inst.Priority == 0 {
		inst.Priority = model.PriorityMedium
	}

	if err := validateInstruction(inst, true); err != nil {
		return model.StandingInstruction{}, err
	}

	err := s.store.InTx(ctx, func(tx *sql.Tx) error {
		fromRef, err := s.lookup.Resolve(ctx, tx, inst.FromAccountID, inst.FromAccountKind, "")
		if err != nil {
			return err
		}
		if _, err := s.lookup.Resolve(ctx, tx, inst.ToAccountID, inst.ToAccountKind, fromRef.CurrencyCode); err != nil {
			return err
		}

		inst.ID, err = s.instructions.Insert(ctx, tx, inst)
		return err
	})
	if err != nil {
		return model.StandingInstruction{}, err
	}
	return inst, nil
}

// Update applies the supplied fields of a partial update and persists the
// result. Deleted instructions cannot be updated.
func (s *Service) Update(ctx context.Context, cmd model.UpdateStandingInstruction) (model.StandingInstruction, error) {
	var inst model.StandingInstruction
	err := s.store.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		inst, err = s.instructions.Get(ctx, tx, cmd.ID)
		if err != nil {
			return err
		}
		if inst.Status == model.InstructionDeleted {
			return model.NewValidationError("status", "standing instruction %d is deleted", cmd.ID)
		}

		applyUpdate(&inst, cmd)
		if err := validateInstruction(inst, false); err != nil {
			return err
		}
		return s.instructions.Update(ctx, tx, inst)
	})
	if err != nil {
		return model.StandingInstruction{}, err
	}
	return inst, nil
}

// Delete soft-deletes an instruction: the row survives for history, the
// scheduler never picks it up again.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx *sql.Tx) error {
		inst, err := s.instructions.Get(ctx, tx, id)
		if err != nil {
			return err
		}
		if inst.Status == model.InstructionDeleted {
			return nil
		}
		inst.Status = model.InstructionDeleted
		return s.instructions.Update(ctx, tx, inst)
	})
}

func applyUpdate(inst *model.StandingInstruction, cmd model.UpdateStandingInstruction) {
	if cmd.Priority != nil {
		inst.Priority = *cmd.Priority
	}
	if cmd.Status != nil {
		inst.Status = *cmd.Status
	}
	if cmd.Amount != nil {
		inst.Amount = *cmd.Amount
	}
	if cmd.ValidFrom != nil {
		inst.ValidFrom = *cmd.ValidFrom
	}
	if cmd.ValidTill != nil {
		inst.ValidTill = *cmd.ValidTill
	}
	if cmd.InstructionType != nil {
		inst.InstructionType = *cmd.InstructionType
	}
	if cmd.RecurrenceType != nil {
		inst.RecurrenceType = *cmd.RecurrenceType
	}
	if cmd.RecurrenceFrequency != nil {
		inst.RecurrenceFrequency = *cmd.RecurrenceFrequency
	}
	if cmd.RecurrenceInterval != nil {
		inst.RecurrenceInterval = *cmd.RecurrenceInterval
	}
	if cmd.RecurrenceOnDay != nil {
		inst.RecurrenceOnDay = *cmd.RecurrenceOnDay
	}
	if cmd.RecurrenceOnMonth != nil {
		inst.RecurrenceOnMonth = *cmd.RecurrenceOnMonth
	}
}

func validateInstruction(inst model.StandingInstruction, creating bool) error {
	if creating && inst.Name == "" {
		return model.NewValidationError("name", "name is required")
	}
	if inst.ValidFrom.IsZero() {
		return model.NewValidationError("validFrom", "validity start is required")
	}
	if !inst.ValidTill.IsZero() && !inst.ValidTill.After(inst.ValidFrom) {
		return model.NewValidationError("validTill", "validity end %s is not after start %s", inst.ValidTill, inst.ValidFrom)
	}

	if inst.FromAccountKind == inst.ToAccountKind && inst.FromAccountID == inst.ToAccountID {
		return model.NewValidationError("toAccountId", "source and destination accounts are the same")
	}
	if inst.FromAccountKind.IsLoan() && inst.ToAccountKind.IsLoan() {
		return &model.UnsupportedTransferKindError{FromKind: inst.FromAccountKind, ToKind: inst.ToAccountKind}
	}

	switch inst.InstructionType {
	case model.InstructionFixed:
		if !inst.Amount.IsPositive() {
			return model.NewValidationError("amount", "a fixed instruction requires a positive amount")
		}
	case model.InstructionDues:
		if !inst.ToAccountKind.IsLoan() {
			return model.NewValidationError("instructionType", "a dues instruction must target a loan")
		}
	default:
		return model.NewValidationError("instructionType", "unknown instruction type %d", int(inst.InstructionType))
	}

	if inst.RecurrenceType == model.RecurrencePeriodic {
		if inst.RecurrenceInterval < 1 {
			return model.NewValidationError("recurrenceInterval", "recurrence interval must be at least 1")
		}
		if inst.RecurrenceOnDay < 0 || inst.RecurrenceOnDay > 31 {
			return model.NewValidationError("recurrenceOnMonthDay", "day of month %d out of range", inst.RecurrenceOnDay)
		}
		if inst.RecurrenceOnMonth < 0 || inst.RecurrenceOnMonth > 12 {
			return model.NewValidationError("recurrenceOnMonthDay", "month %d out of range", inst.RecurrenceOnMonth)
		}
	}
	if inst.RecurrenceType == model.RecurrenceAsPerDues && !inst.ToAccountKind.IsLoan() {
		return model.NewValidationError("recurrenceType", "as-per-dues recurrence must target a loan")
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/corebank-dev/corebank/internal/model"
)

// InstructionStore persists standing instructions.
type InstructionStore struct{}

// NewInstructionStore creates an InstructionStore.
func NewInstructionStore() *InstructionStore { return &InstructionStore{} }

// Insert writes a new standing instruction and returns its id. A duplicate
// name surfaces as a DataIntegrityError with a domain message.
func (is *InstructionStore) Insert(ctx context.Context, q Querier, inst model.StandingInstruction) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO standing_instructions (
			name, from_kind, from_account_id, to_kind, to_account_id,
			transfer_kind, instruction_type, priority, status, amount,
			valid_from, valid_till, recurrence_type, recurrence_frequency,
			recurrence_interval, recurrence_on_day, recurrence_on_month,
			last_run_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		inst.Name,
		inst.FromAccountKind.Code(), inst.FromAccountID,
		inst.ToAccountKind.Code(), inst.ToAccountID,
		inst.TransferKind.Code(), inst.InstructionType.Code(),
		inst.Priority.Code(), inst.Status.Code(),
		nullDecimal(inst.Amount),
		inst.ValidFrom.String(), nullDate(inst.ValidTill),
		inst.RecurrenceType.Code(), inst.RecurrenceFrequency.Code(),
		inst.RecurrenceInterval, inst.RecurrenceOnDay, inst.RecurrenceOnMonth,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &model.DataIntegrityError{
				Message: fmt.Sprintf("standing instruction with name %q already exists", inst.Name),
				Cause:   err,
			}
		}
		return 0, fmt.Errorf("inserting standing instruction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading instruction id: %w", err)
	}
	return id, nil
}

// Get loads one standing instruction by id, including soft-deleted ones.
func (is *InstructionStore) Get(ctx context.Context, q Querier, id int64) (model.StandingInstruction, error) {
	row := q.QueryRowContext(ctx, selectInstruction+` WHERE id = ?`, id)
	inst, err := scanInstruction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StandingInstruction{}, &model.NotFoundError{Resource: "standing instruction", ID: id}
	}
	if err != nil {
		return model.StandingInstruction{}, fmt.Errorf("loading standing instruction %d: %w", id, err)
	}
	return inst, nil
}

// Update rewrites the mutable columns of an existing instruction.
func (is *InstructionStore) Update(ctx context.Context, q Querier, inst model.StandingInstruction) error {
	res, err := q.ExecContext(ctx, `
		UPDATE standing_instructions SET
			instruction_type = ?, priority = ?, status = ?, amount = ?,
			valid_from = ?, valid_till = ?, recurrence_type = ?,
			recurrence_frequency = ?, recurrence_interval = ?,
			recurrence_on_day = ?, recurrence_on_month = ?
		WHERE id = ?`,
		inst.InstructionType.Code(), inst.Priority.Code(), inst.Status.Code(),
		nullDecimal(inst.Amount),
		inst.ValidFrom.String(), nullDate(inst.ValidTill),
		inst.RecurrenceType.Code(), inst.RecurrenceFrequency.Code(),
		inst.RecurrenceInterval, inst.RecurrenceOnDay, inst.RecurrenceOnMonth,
		inst.ID,
	)
	if err != nil {
		return fmt.Errorf("updating standing instruction %d: %w", inst.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating standing instruction %d: %w", inst.ID, err)
	}
	if n == 0 {
		return &model.NotFoundError{Resource: "standing instruction", ID: inst.ID}
	}
	return nil
}

// MarkRun advances the instruction's last run date. Called only after a
// successful transfer, inside the same transaction.
func (is *InstructionStore) MarkRun(ctx context.Context, q Querier, id int64, ranOn model.Date) error {
	_, err := q.ExecContext(ctx,
		`UPDATE standing_instructions SET last_run_date = ? WHERE id = ?`,
		ranOn.String(), id)
	if err != nil {
		return fmt.Errorf("updating last run date for instruction %d: %w", id, err)
	}
	return nil
}

// ListActiveCandidates returns every active instruction whose validity window
// covers asOf and that has not already run on asOf, most urgent first.
func (is *InstructionStore) ListActiveCandidates(ctx context.Context, q Querier, asOf model.Date) ([]model.StandingInstruction, error) {
	day := asOf.String()
	rows, err := q.QueryContext(ctx, selectInstruction+`
		WHERE status = ?
		  AND valid_from <= ?
		  AND (valid_till IS NULL OR valid_till > ?)
		  AND (last_run_date IS NULL OR last_run_date <> ?)
		ORDER BY priority, id`,
		model.InstructionActive.Code(), day, day, day)
	if err != nil {
		return nil, fmt.Errorf("listing active instructions: %w", err)
	}
	defer rows.Close()

	var insts []model.StandingInstruction
	for rows.Next() {
		inst, err := scanInstruction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning standing instruction: %w", err)
		}
		insts = append(insts, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing active instructions: %w", err)
	}
	return insts, nil
}

const selectInstruction = `
	SELECT id, name, from_kind, from_account_id, to_kind, to_account_id,
	       transfer_kind, instruction_type, priority, status, amount,
	       valid_from, valid_till, recurrence_type, recurrence_frequency,
	       recurrence_interval, recurrence_on_day, recurrence_on_month,
	       last_run_date
	FROM standing_instructions`

func scanInstruction(row rowScanner) (model.StandingInstruction, error) {
	var (
		inst                                       model.StandingInstruction
		fromKind, toKind, tkind, itype, prio, stat int
		rtype, rfreq                               int
		amount, validTill, lastRun                 sql.NullString
		validFrom                                  string
	)
	err := row.Scan(&inst.ID, &inst.Name, &fromKind, &inst.FromAccountID,
		&toKind, &inst.ToAccountID, &tkind, &itype, &prio, &stat, &amount,
		&validFrom, &validTill, &rtype, &rfreq, &inst.RecurrenceInterval,
		&inst.RecurrenceOnDay, &inst.RecurrenceOnMonth, &lastRun)
	if err != nil {
		return model.StandingInstruction{}, err
	}

	if inst.FromAccountKind, err = model.AccountKindFromCode(fromKind); err != nil {
		return model.StandingInstruction{}, err
	}
	if inst.ToAccountKind, err = model.AccountKindFromCode(toKind); err != nil {
		return model.StandingInstruction{}, err
	}
	if inst.TransferKind, err = model.TransferKindFromCode(tkind); err != nil {
		return model.StandingInstruction{}, err
	}
	if inst.InstructionType, err = model.InstructionTypeFromCode(itype); err != nil {
		return model.StandingInstruction{}, err
	}
	if inst.Priority, err = model.InstructionPriorityFromCode(prio); err != nil {
		return model.StandingInstruction{}, err
	}
	if inst.Status, err = model.InstructionStatusFromCode(stat); err != nil {
		return model.StandingInstruction{}, err
	}
	if inst.RecurrenceType, err = model.RecurrenceTypeFromCode(rtype); err != nil {
		return model.StandingInstruction{}, err
	}
	if inst.RecurrenceFrequency, err = model.PeriodFrequencyFromCode(rfreq); err != nil {
		return model.StandingInstruction{}, err
	}

	if amount.Valid {
		if inst.Amount, err = decimal.NewFromString(amount.String); err != nil {
			return model.StandingInstruction{}, fmt.Errorf("parsing amount %q: %w", amount.String, err)
		}
	}
	if inst.ValidFrom, err = model.ParseDate(validFrom); err != nil {
		return model.StandingInstruction{}, err
	}
	if validTill.Valid {
		if inst.ValidTill, err = model.ParseDate(validTill.String); err != nil {
			return model.StandingInstruction{}, err
		}
	}
	if lastRun.Valid {
		if inst.LastRunDate, err = model.ParseDate(lastRun.String); err != nil {
			return model.StandingInstruction{}, err
		}
	}
	return inst, nil
}

func nullDecimal(d decimal.Decimal) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func nullDate(d model.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

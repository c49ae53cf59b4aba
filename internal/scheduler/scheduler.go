// Package scheduler runs the standing-instruction batch: one pass evaluates
// every active instruction, executes those due, and isolates failures so one
// bad instruction never blocks the rest.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/corebank-dev/corebank/internal/instruction"
	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/store"
)

// Orchestrator executes one transfer inside the runner's transaction.
type Orchestrator interface {
	ExecuteIn(ctx context.Context, q store.Querier, cmd model.CreateTransfer) (model.TransferRecord, error)
}

// LoanDuesReader reads a loan's live dues snapshot.
type LoanDuesReader interface {
	Dues(ctx context.Context, q store.Querier, loanID int64) (model.LoanDues, error)
}

// Runner is the batch entry point invoked by the external job runner. It is
// single-threaded: instructions are processed strictly one at a time.
type Runner struct {
	store        *store.Store
	instructions *store.InstructionStore
	history      *store.HistoryStore
	orchestrator Orchestrator
	loans        LoanDuesReader
	log          *zap.Logger
	now          func() time.Time
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(st *store.Store, instructions *store.InstructionStore, history *store.HistoryStore, orch Orchestrator, loans LoanDuesReader, log *zap.Logger) *Runner {
	return &Runner{
		store:        st,
		instructions: instructions,
		history:      history,
		orchestrator: orch,
		loans:        loans,
		log:          log,
		now:          time.Now,
	}
}

// errSkip marks an instruction that is simply not due; no attempt is made
// and no history row is written.
var errSkip = errors.New("instruction not due")

// Run evaluates every active standing instruction once as of the given day.
// Successful transfers stay committed even when later instructions fail; if
// any instruction failed, Run returns an error carrying every per-instruction
// message so the job runner can report the batch as failed.
func (r *Runner) Run(ctx context.Context, asOf model.Date) error {
	candidates, err := r.instructions.ListActiveCandidates(ctx, r.store.DB(), asOf)
	if err != nil {
		return err
	}

	r.log.Info("standing instruction batch started",
		zap.String("asOf", asOf.String()),
		zap.Int("candidates", len(candidates)))

	var failures []string
	executed := 0
	for _, inst := range candidates {
		amount, err := r.runOne(ctx, inst, asOf)
		if errors.Is(err, errSkip) {
			continue
		}

		entry := model.ExecutionHistoryEntry{
			InstructionID: inst.ID,
			Status:        model.ExecutionSuccess,
			Amount:        amount,
			ExecutionTime: r.now(),
		}
		if err != nil {
			entry.Status = model.ExecutionFailed
			entry.ErrorLog = err.Error()
			failures = append(failures, fmt.Sprintf("instruction %d (%s): %v", inst.ID, inst.Name, err))
			r.log.Warn("standing instruction failed",
				zap.Int64("instructionId", inst.ID),
				zap.String("name", inst.Name),
				zap.Error(err))
		} else {
			executed++
			r.log.Info("standing instruction executed",
				zap.Int64("instructionId", inst.ID),
				zap.String("name", inst.Name),
				zap.String("amount", amount.String()))
		}

		// The history row must survive the attempt's rollback, so it is
		// appended outside the attempt's transaction.
		if histErr := r.history.Append(ctx, r.store.DB(), entry); histErr != nil {
			return fmt.Errorf("recording execution history: %w", histErr)
		}
	}

	r.log.Info("standing instruction batch finished",
		zap.Int("executed", executed),
		zap.Int("failed", len(failures)))

	if len(failures) > 0 {
		return fmt.Errorf("standing instruction execution failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// runOne attempts a single instruction inside one transaction: dues snapshot,
// transfer and last-run advance commit together or roll back together. The
// returned amount is what the attempt tried to move.
func (r *Runner) runOne(ctx context.Context, inst model.StandingInstruction, asOf model.Date) (decimal.Decimal, error) {
	var attempted decimal.Decimal
	err := r.store.InTx(ctx, func(tx *sql.Tx) error {
		amount, due, err := r.resolveAmount(ctx, tx, inst, asOf)
		if err != nil {
			return err
		}
		if !due || !amount.IsPositive() {
			return errSkip
		}
		attempted = amount

		cmd := model.CreateTransfer{
			FromAccountKind: inst.FromAccountKind,
			FromAccountID:   inst.FromAccountID,
			ToAccountKind:   inst.ToAccountKind,
			ToAccountID:     inst.ToAccountID,
			TransferKind:    inst.TransferKind,
			TransferDate:    asOf,
			Amount:          amount,
			Description:     inst.Name + " Standing instruction transfer",
		}
		if _, err := r.orchestrator.ExecuteIn(ctx, tx, cmd); err != nil {
			return err
		}

		// A failed attempt leaves the last run date untouched, so the
		// instruction is re-evaluated on the next pass.
		return r.instructions.MarkRun(ctx, tx, inst.ID, asOf)
	})
	return attempted, err
}

// resolveAmount decides whether the instruction is due on asOf and what
// amount to move. The dues snapshot is read inside the attempt's transaction
// so the amount cannot go stale between lookup and execution.
func (r *Runner) resolveAmount(ctx context.Context, q store.Querier, inst model.StandingInstruction, asOf model.Date) (decimal.Decimal, bool, error) {
	switch inst.RecurrenceType {
	case model.RecurrenceAsPerDues:
		dues, err := r.loans.Dues(ctx, q, inst.ToAccountID)
		if err != nil {
			return decimal.Decimal{}, false, err
		}
		if !dues.HasDue || !dues.DueDate.Equal(asOf) {
			return decimal.Decimal{}, false, nil
		}
		return dues.Total(), true, nil

	case model.RecurrencePeriodic:
		if !instruction.Occurs(inst, asOf) {
			return decimal.Decimal{}, false, nil
		}
		if inst.InstructionType == model.InstructionDues && inst.ToAccountKind.IsLoan() {
			dues, err := r.loans.Dues(ctx, q, inst.ToAccountID)
			if err != nil {
				return decimal.Decimal{}, false, err
			}
			if total := dues.Total(); total.IsPositive() {
				return total, true, nil
			}
			// No live dues; fall back to the stored amount.
			return inst.Amount, true, nil
		}
		return inst.Amount, true, nil
	}
	return decimal.Decimal{}, false, model.NewValidationError("recurrenceType",
		"unknown recurrence type %d on instruction %d", int(inst.RecurrenceType), inst.ID)
}

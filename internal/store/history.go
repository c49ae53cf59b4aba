package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank-dev/corebank/internal/model"
)

// HistoryStore appends standing-instruction execution history. Rows are
// append-only and never mutated.
type HistoryStore struct{}

// NewHistoryStore creates a HistoryStore.
func NewHistoryStore() *HistoryStore { return &HistoryStore{} }

// Append records one execution attempt.
func (hs *HistoryStore) Append(ctx context.Context, q Querier, entry model.ExecutionHistoryEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO instruction_history (instruction_id, status, amount, execution_time, error_log)
		VALUES (?, ?, ?, ?, ?)`,
		entry.InstructionID, string(entry.Status), entry.Amount.String(),
		entry.ExecutionTime.UTC().Format(time.RFC3339), entry.ErrorLog,
	)
	if err != nil {
		return fmt.Errorf("appending execution history for instruction %d: %w", entry.InstructionID, err)
	}
	return nil
}

// ListByInstruction returns every attempt for one instruction, oldest first.
func (hs *HistoryStore) ListByInstruction(ctx context.Context, q Querier, instructionID int64) ([]model.ExecutionHistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, instruction_id, status, amount, execution_time, error_log
		FROM instruction_history
		WHERE instruction_id = ?
		ORDER BY id`, instructionID)
	if err != nil {
		return nil, fmt.Errorf("listing execution history: %w", err)
	}
	defer rows.Close()

	var entries []model.ExecutionHistoryEntry
	for rows.Next() {
		var (
			entry          model.ExecutionHistoryEntry
			status, amount string
			executionTime  string
		)
		if err := rows.Scan(&entry.ID, &entry.InstructionID, &status, &amount, &executionTime, &entry.ErrorLog); err != nil {
			return nil, fmt.Errorf("scanning execution history: %w", err)
		}
		entry.Status = model.ExecutionStatus(status)
		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
		}
		if entry.ExecutionTime, err = time.Parse(time.RFC3339, executionTime); err != nil {
			return nil, fmt.Errorf("parsing execution time %q: %w", executionTime, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing execution history: %w", err)
	}
	return entries, nil
}

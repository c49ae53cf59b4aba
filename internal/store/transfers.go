package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/corebank-dev/corebank/internal/model"
)

// TransferStore persists TransferRecords.
type TransferStore struct{}

// NewTransferStore creates a TransferStore.
func NewTransferStore() *TransferStore { return &TransferStore{} }

// Insert writes a new transfer record and returns its id.
func (ts *TransferStore) Insert(ctx context.Context, q Querier, rec model.TransferRecord) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO transfers (
			from_kind, from_account_id, to_kind, to_account_id, transfer_kind,
			amount, currency_code, transfer_date, description, reversed,
			from_txn_id, to_txn_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		rec.FromAccount.Kind.Code(), rec.FromAccount.AccountID,
		rec.ToAccount.Kind.Code(), rec.ToAccount.AccountID,
		rec.TransferKind.Code(),
		rec.Amount.String(), rec.CurrencyCode, rec.TransferDate.String(),
		rec.Description, rec.FromTransactionID, rec.ToTransactionID,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting transfer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading transfer id: %w", err)
	}
	return id, nil
}

// Get loads one transfer record by id.
func (ts *TransferStore) Get(ctx context.Context, q Querier, id int64) (model.TransferRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, from_kind, from_account_id, to_kind, to_account_id,
		       transfer_kind, amount, currency_code, transfer_date,
		       description, reversed, from_txn_id, to_txn_id
		FROM transfers WHERE id = ?`, id)

	rec, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TransferRecord{}, &model.NotFoundError{Resource: "transfer", ID: id}
	}
	if err != nil {
		return model.TransferRecord{}, fmt.Errorf("loading transfer %d: %w", id, err)
	}
	return rec, nil
}

// MarkReversed flips the reversed flag. It reports whether this call did the
// flip; a record already reversed leaves the row untouched.
func (ts *TransferStore) MarkReversed(ctx context.Context, q Querier, id int64) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE transfers SET reversed = 1 WHERE id = ? AND reversed = 0`, id)
	if err != nil {
		return false, fmt.Errorf("marking transfer %d reversed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking transfer %d reversed: %w", id, err)
	}
	return n == 1, nil
}

// ListNonReversedFrom returns all non-reversed transfers sourced from the
// given account, oldest first.
func (ts *TransferStore) ListNonReversedFrom(ctx context.Context, q Querier, kind model.AccountKind, accountID int64) ([]model.TransferRecord, error) {
	return ts.list(ctx, q, `
		SELECT id, from_kind, from_account_id, to_kind, to_account_id,
		       transfer_kind, amount, currency_code, transfer_date,
		       description, reversed, from_txn_id, to_txn_id
		FROM transfers
		WHERE reversed = 0 AND from_kind = ? AND from_account_id = ?
		ORDER BY id`, kind.Code(), accountID)
}

// ListNonReversedTouching returns all non-reversed transfers where the given
// account is either leg, oldest first. Used on account closure.
func (ts *TransferStore) ListNonReversedTouching(ctx context.Context, q Querier, kind model.AccountKind, accountID int64) ([]model.TransferRecord, error) {
	return ts.list(ctx, q, `
		SELECT id, from_kind, from_account_id, to_kind, to_account_id,
		       transfer_kind, amount, currency_code, transfer_date,
		       description, reversed, from_txn_id, to_txn_id
		FROM transfers
		WHERE reversed = 0
		  AND ((from_kind = ? AND from_account_id = ?) OR (to_kind = ? AND to_account_id = ?))
		ORDER BY id`, kind.Code(), accountID, kind.Code(), accountID)
}

// ListByAccount returns every transfer touching the given account, oldest
// first, reversed ones included.
func (ts *TransferStore) ListByAccount(ctx context.Context, q Querier, kind model.AccountKind, accountID int64) ([]model.TransferRecord, error) {
	return ts.list(ctx, q, `
		SELECT id, from_kind, from_account_id, to_kind, to_account_id,
		       transfer_kind, amount, currency_code, transfer_date,
		       description, reversed, from_txn_id, to_txn_id
		FROM transfers
		WHERE (from_kind = ? AND from_account_id = ?) OR (to_kind = ? AND to_account_id = ?)
		ORDER BY id`, kind.Code(), accountID, kind.Code(), accountID)
}

func (ts *TransferStore) list(ctx context.Context, q Querier, query string, args ...any) ([]model.TransferRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var recs []model.TransferRecord
	for rows.Next() {
		rec, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (model.TransferRecord, error) {
	var (
		rec                     model.TransferRecord
		fromKind, toKind, tkind int
		amount, transferDate    string
		reversed                int
	)
	err := row.Scan(&rec.ID, &fromKind, &rec.FromAccount.AccountID, &toKind,
		&rec.ToAccount.AccountID, &tkind, &amount, &rec.CurrencyCode,
		&transferDate, &rec.Description, &reversed,
		&rec.FromTransactionID, &rec.ToTransactionID)
	if err != nil {
		return model.TransferRecord{}, err
	}

	if rec.FromAccount.Kind, err = model.AccountKindFromCode(fromKind); err != nil {
		return model.TransferRecord{}, err
	}
	if rec.ToAccount.Kind, err = model.AccountKindFromCode(toKind); err != nil {
		return model.TransferRecord{}, err
	}
	if rec.TransferKind, err = model.TransferKindFromCode(tkind); err != nil {
		return model.TransferRecord{}, err
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.TransferRecord{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	if rec.TransferDate, err = model.ParseDate(transferDate); err != nil {
		return model.TransferRecord{}, err
	}
	rec.FromAccount.CurrencyCode = rec.CurrencyCode
	rec.ToAccount.CurrencyCode = rec.CurrencyCode
	rec.Reversed = reversed != 0
	return rec, nil
}

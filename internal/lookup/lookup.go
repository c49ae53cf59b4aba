// Package lookup resolves account references uniformly across account kinds.
// It is a read-only projection layer; all mutation goes through the ledgers.
package lookup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/store"
)

// Service resolves account references and lists transfer candidates.
type Service struct {
	savings savingsRepo
	loans   loanRepo
}

// NewService creates a lookup Service.
func NewService() *Service { return &Service{} }

// Resolve returns the AccountRef for one account. When currencyCode is
// non-empty, an account in a different currency is treated as not found.
func (s *Service) Resolve(ctx context.Context, q store.Querier, accountID int64, kind model.AccountKind, currencyCode string) (model.AccountRef, error) {
	var (
		accountRef model.AccountRef
		err        error
	)
	switch kind {
	case model.AccountKindSavings:
		accountRef, err = s.savings.byID(ctx, q, accountID)
	case model.AccountKindLoan:
		accountRef, err = s.loans.byID(ctx, q, accountID)
	default:
		return model.AccountRef{}, model.NewValidationError("accountKind", "unknown account kind %d", int(kind))
	}
	if err != nil {
		return model.AccountRef{}, err
	}

	if currencyCode != "" && accountRef.CurrencyCode != currencyCode {
		return model.AccountRef{}, &model.NotFoundError{Resource: fmt.Sprintf("%s account in currency %s", kind, currencyCode), ID: accountID}
	}
	return accountRef, nil
}

// ListCandidates lists a client's accounts of one kind eligible as transfer
// destinations. With no statuses supplied, only active accounts are listed;
// callers add pending or awaiting-disbursal for advance-payment scenarios.
func (s *Service) ListCandidates(ctx context.Context, q store.Querier, kind model.AccountKind, clientID int64, currencyCode string, statuses []model.AccountStatus) ([]model.AccountRef, error) {
	if len(statuses) == 0 {
		statuses = []model.AccountStatus{model.AccountStatusActive}
	}
	switch kind {
	case model.AccountKindSavings:
		return s.savings.byClient(ctx, q, clientID, currencyCode, statuses)
	case model.AccountKindLoan:
		return s.loans.byClient(ctx, q, clientID, currencyCode, statuses)
	}
	return nil, model.NewValidationError("accountKind", "unknown account kind %d", int(kind))
}

// ResolveOverpaidLoan resolves a loan and populates the amount currently
// available for a refund-by-transfer, i.e. its overpaid balance.
func (s *Service) ResolveOverpaidLoan(ctx context.Context, q store.Querier, accountID int64, kind model.AccountKind) (model.AccountRef, error) {
	if !kind.IsLoan() {
		return model.AccountRef{}, model.NewValidationError("accountKind", "overpaid balance exists only on loans, got %s", kind)
	}

	accountRef, overpaid, err := s.loans.byIDWithOverpaid(ctx, q, accountID)
	if err != nil {
		return model.AccountRef{}, err
	}
	accountRef.AmountAvailableForTransfer = overpaid
	return accountRef, nil
}

// savingsRepo projects savings account rows into AccountRefs.
type savingsRepo struct{}

func (savingsRepo) byID(ctx context.Context, q store.Querier, accountID int64) (model.AccountRef, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, client_id, office_id, currency_code, status
		FROM savings_accounts WHERE id = ?`, accountID)
	return scanRef(row, model.AccountKindSavings, "savings account", accountID)
}

func (savingsRepo) byClient(ctx context.Context, q store.Querier, clientID int64, currencyCode string, statuses []model.AccountStatus) ([]model.AccountRef, error) {
	query := `
		SELECT id, client_id, office_id, currency_code, status
		FROM savings_accounts WHERE client_id = ? AND status IN (` + statusPlaceholders(statuses) + `)`
	args := []any{clientID}
	args = append(args, statusArgs(statuses)...)
	if currencyCode != "" {
		query += ` AND currency_code = ?`
		args = append(args, currencyCode)
	}
	return listRefs(ctx, q, model.AccountKindSavings, query+` ORDER BY id`, args...)
}

// loanRepo projects loan rows into AccountRefs.
type loanRepo struct{}

func (loanRepo) byID(ctx context.Context, q store.Querier, accountID int64) (model.AccountRef, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, client_id, office_id, currency_code, status
		FROM loans WHERE id = ?`, accountID)
	return scanRef(row, model.AccountKindLoan, "loan", accountID)
}

func (loanRepo) byIDWithOverpaid(ctx context.Context, q store.Querier, accountID int64) (model.AccountRef, decimal.Decimal, error) {
	var (
		accountRef model.AccountRef
		status     int
		overpaid   string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, client_id, office_id, currency_code, status, overpaid
		FROM loans WHERE id = ?`, accountID).
		Scan(&accountRef.AccountID, &accountRef.ClientID, &accountRef.OfficeID,
			&accountRef.CurrencyCode, &status, &overpaid)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccountRef{}, decimal.Decimal{}, &model.NotFoundError{Resource: "loan", ID: accountID}
	}
	if err != nil {
		return model.AccountRef{}, decimal.Decimal{}, fmt.Errorf("loading loan %d: %w", accountID, err)
	}
	accountRef.Kind = model.AccountKindLoan
	accountRef.Status = model.AccountStatus(status)

	amount, err := decimal.NewFromString(overpaid)
	if err != nil {
		return model.AccountRef{}, decimal.Decimal{}, fmt.Errorf("parsing overpaid %q: %w", overpaid, err)
	}
	return accountRef, amount, nil
}

func (loanRepo) byClient(ctx context.Context, q store.Querier, clientID int64, currencyCode string, statuses []model.AccountStatus) ([]model.AccountRef, error) {
	query := `
		SELECT id, client_id, office_id, currency_code, status
		FROM loans WHERE client_id = ? AND status IN (` + statusPlaceholders(statuses) + `)`
	args := []any{clientID}
	args = append(args, statusArgs(statuses)...)
	if currencyCode != "" {
		query += ` AND currency_code = ?`
		args = append(args, currencyCode)
	}
	return listRefs(ctx, q, model.AccountKindLoan, query+` ORDER BY id`, args...)
}

func scanRef(row *sql.Row, kind model.AccountKind, resource string, accountID int64) (model.AccountRef, error) {
	var (
		accountRef model.AccountRef
		status     int
	)
	err := row.Scan(&accountRef.AccountID, &accountRef.ClientID, &accountRef.OfficeID,
		&accountRef.CurrencyCode, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccountRef{}, &model.NotFoundError{Resource: resource, ID: accountID}
	}
	if err != nil {
		return model.AccountRef{}, fmt.Errorf("loading %s %d: %w", resource, accountID, err)
	}
	accountRef.Kind = kind
	accountRef.Status = model.AccountStatus(status)
	return accountRef, nil
}

func listRefs(ctx context.Context, q store.Querier, kind model.AccountKind, query string, args ...any) ([]model.AccountRef, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s accounts: %w", kind, err)
	}
	defer rows.Close()

	var refs []model.AccountRef
	for rows.Next() {
		var (
			accountRef model.AccountRef
			status     int
		)
		if err := rows.Scan(&accountRef.AccountID, &accountRef.ClientID,
			&accountRef.OfficeID, &accountRef.CurrencyCode, &status); err != nil {
			return nil, fmt.Errorf("scanning %s account: %w", kind, err)
		}
		accountRef.Kind = kind
		accountRef.Status = model.AccountStatus(status)
		refs = append(refs, accountRef)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s accounts: %w", kind, err)
	}
	return refs, nil
}

func statusPlaceholders(statuses []model.AccountStatus) string {
	return strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
}

func statusArgs(statuses []model.AccountStatus) []any {
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = int(s)
	}
	return args
}

package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/transfer"
)

func newTransferCommand(configPath *string) *cobra.Command {
	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "Execute and reverse fund transfers",
	}
	transferCmd.AddCommand(newTransferCreateCommand(configPath))
	transferCmd.AddCommand(newTransferRefundCommand(configPath))
	transferCmd.AddCommand(newTransferReverseCommand(configPath))
	transferCmd.AddCommand(newTransferReverseAllCommand(configPath))
	return transferCmd
}

func newTransferRefundCommand(configPath *string) *cobra.Command {
	var (
		loanID, savingsID int64
		amountStr, date   string
		description       string
	)

	cmd := &cobra.Command{
		Use:   "refund",
		Short: "Refund an overpaid loan into a savings account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := buildCreateTransfer("loan", loanID, "savings", savingsID, amountStr, date, description, "account-transfer")
			if err != nil {
				return err
			}

			rec, err := a.orchestrator.RefundByTransfer(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Printf("Transfer %d executed: refunded %s %s from loan %d to savings %d\n",
				rec.ID, rec.Amount, rec.CurrencyCode, loanID, savingsID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&loanID, "loan", 0, "overpaid loan id (required)")
	cmd.Flags().Int64Var(&savingsID, "savings", 0, "destination savings account id (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "refund amount (required)")
	cmd.Flags().StringVar(&date, "date", "", "transfer date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&description, "description", "", "transfer description")
	_ = cmd.MarkFlagRequired("loan")
	_ = cmd.MarkFlagRequired("savings")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTransferCreateCommand(configPath *string) *cobra.Command {
	var (
		fromKind, toKind  string
		fromID, toID      int64
		amountStr, date   string
		description, kind string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Execute one fund transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			c, err := buildCreateTransfer(fromKind, fromID, toKind, toID, amountStr, date, description, kind)
			if err != nil {
				return err
			}

			rec, err := a.orchestrator.Execute(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Printf("Transfer %d executed: %s %s from %s %d to %s %d\n",
				rec.ID, rec.Amount, rec.CurrencyCode,
				rec.FromAccount.Kind, rec.FromAccount.AccountID,
				rec.ToAccount.Kind, rec.ToAccount.AccountID)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromKind, "from-kind", "savings", "source account kind (savings or loan)")
	cmd.Flags().Int64Var(&fromID, "from-id", 0, "source account id (required)")
	cmd.Flags().StringVar(&toKind, "to-kind", "savings", "destination account kind (savings or loan)")
	cmd.Flags().Int64Var(&toID, "to-id", 0, "destination account id (required)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "transfer amount (required)")
	cmd.Flags().StringVar(&date, "date", "", "transfer date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&description, "description", "", "transfer description")
	cmd.Flags().StringVar(&kind, "kind", "account-transfer", "transfer kind (account-transfer, loan-repayment, charge-payment)")
	_ = cmd.MarkFlagRequired("from-id")
	_ = cmd.MarkFlagRequired("to-id")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newTransferReverseCommand(configPath *string) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "reverse",
		Short: "Reverse one transfer by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.orchestrator.Reverse(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Transfer %d reversed\n", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "transfer id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newTransferReverseAllCommand(configPath *string) *cobra.Command {
	var (
		kindStr   string
		accountID int64
		touching  bool
	)

	cmd := &cobra.Command{
		Use:   "reverse-all",
		Short: "Reverse every non-reversed transfer for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			kind, err := parseAccountKind(kindStr)
			if err != nil {
				return err
			}
			scope := transfer.ScopeFromAccount
			if touching {
				scope = transfer.ScopeTouchingAccount
			}

			n, err := a.orchestrator.ReverseCascade(cmd.Context(), kind, accountID, scope)
			if err != nil {
				return fmt.Errorf("%w (%d transfers reversed before failure)", err, n)
			}
			fmt.Printf("Reversed %d transfers\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindStr, "kind", "loan", "account kind (savings or loan)")
	cmd.Flags().Int64Var(&accountID, "account", 0, "account id (required)")
	cmd.Flags().BoolVar(&touching, "touching", false, "include transfers where the account is the destination")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func buildCreateTransfer(fromKind string, fromID int64, toKind string, toID int64, amountStr, date, description, kind string) (model.CreateTransfer, error) {
	fk, err := parseAccountKind(fromKind)
	if err != nil {
		return model.CreateTransfer{}, err
	}
	tk, err := parseAccountKind(toKind)
	if err != nil {
		return model.CreateTransfer{}, err
	}
	transferKind, err := parseTransferKind(kind)
	if err != nil {
		return model.CreateTransfer{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return model.CreateTransfer{}, fmt.Errorf("parsing amount %q: %w", amountStr, err)
	}

	transferDate := model.Today()
	if date != "" {
		if transferDate, err = model.ParseDate(date); err != nil {
			return model.CreateTransfer{}, err
		}
	}

	return model.CreateTransfer{
		FromAccountKind: fk,
		FromAccountID:   fromID,
		ToAccountKind:   tk,
		ToAccountID:     toID,
		TransferKind:    transferKind,
		TransferDate:    transferDate,
		Amount:          amount,
		Description:     description,
	}, nil
}

func parseAccountKind(s string) (model.AccountKind, error) {
	switch s {
	case "savings":
		return model.AccountKindSavings, nil
	case "loan":
		return model.AccountKindLoan, nil
	}
	return 0, fmt.Errorf("unknown account kind %q (want savings or loan)", s)
}

func parseTransferKind(s string) (model.TransferKind, error) {
	switch s {
	case "account-transfer":
		return model.TransferAccountTransfer, nil
	case "loan-repayment":
		return model.TransferLoanRepayment, nil
	case "charge-payment":
		return model.TransferChargePayment, nil
	case "interest-transfer":
		return model.TransferInterestTransfer, nil
	}
	return 0, fmt.Errorf("unknown transfer kind %q", s)
}

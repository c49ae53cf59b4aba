package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/corebank-dev/corebank/internal/config"
	"github.com/corebank-dev/corebank/internal/ledger"
	"github.com/corebank-dev/corebank/internal/model"
	"github.com/corebank-dev/corebank/internal/store"
)

func newInitCommand(configPath *string) *cobra.Command {
	var dbPath string
	var demo bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new corebank deployment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(cmd.Context(), absDir, dbPath, demo)
		},
	}

	cmd.Flags().StringVar(&dbPath, "database", "corebank.db", "database file name")
	cmd.Flags().BoolVar(&demo, "demo", false, "seed demo accounts")

	return cmd
}

func runInit(ctx context.Context, dir, dbPath string, demo bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, dbPath)
	if err := config.Save(filepath.Join(dir, "corebank.yaml"), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer st.Close()

	if demo {
		if err := seedDemo(ctx, st); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	fmt.Printf("Initialized corebank deployment in %s\n", dir)
	return nil
}

func seedDemo(ctx context.Context, st *store.Store) error {
	savings := ledger.NewSavingsLedger()
	loans := ledger.NewLoanLedger()
	db := st.DB()

	accounts := []ledger.SavingsAccount{
		{ID: 1, ClientID: 1, OfficeID: 1, CurrencyCode: "USD", Status: model.AccountStatusActive, Balance: decimal.RequireFromString("1000.00")},
		{ID: 2, ClientID: 2, OfficeID: 1, CurrencyCode: "USD", Status: model.AccountStatusActive, Balance: decimal.RequireFromString("250.00")},
	}
	for _, a := range accounts {
		if err := savings.CreateAccount(ctx, db, a); err != nil {
			return err
		}
	}

	return loans.CreateLoan(ctx, db, ledger.Loan{
		ID: 10, ClientID: 1, OfficeID: 1, CurrencyCode: "USD",
		Status:       model.AccountStatusActive,
		PrincipalDue: decimal.RequireFromString("500.00"),
		InterestDue:  decimal.RequireFromString("25.00"),
		DueDate:      model.Today(),
	})
}

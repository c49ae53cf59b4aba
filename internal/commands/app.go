package commands

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/corebank-dev/corebank/internal/config"
	"github.com/corebank-dev/corebank/internal/instruction"
	"github.com/corebank-dev/corebank/internal/journal"
	"github.com/corebank-dev/corebank/internal/ledger"
	"github.com/corebank-dev/corebank/internal/logging"
	"github.com/corebank-dev/corebank/internal/lookup"
	"github.com/corebank-dev/corebank/internal/scheduler"
	"github.com/corebank-dev/corebank/internal/store"
	"github.com/corebank-dev/corebank/internal/transfer"
)

// app wires the engine's services from a configuration file.
type app struct {
	cfg          *config.Config
	store        *store.Store
	log          *zap.Logger
	savings      *ledger.SavingsLedger
	loans        *ledger.LoanLedger
	orchestrator *transfer.Orchestrator
	instructions *instruction.Service
	runner       *scheduler.Runner
}

func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	savings := ledger.NewSavingsLedger()
	loans := ledger.NewLoanLedger()
	lkp := lookup.NewService()
	transfers := store.NewTransferStore()
	instructions := store.NewInstructionStore()
	history := store.NewHistoryStore()
	poster := journal.NewPoster()

	orch := transfer.NewOrchestrator(st, transfers, lkp, savings, loans, poster, log)

	return &app{
		cfg:          cfg,
		store:        st,
		log:          log,
		savings:      savings,
		loans:        loans,
		orchestrator: orch,
		instructions: instruction.NewService(st, instructions, lkp),
		runner:       scheduler.NewRunner(st, instructions, history, orch, loans, log),
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
	_ = a.store.Close()
}

package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/corebank-dev/corebank/internal/model"
)

func newInstructionsCommand(configPath *string) *cobra.Command {
	instCmd := &cobra.Command{
		Use:     "instruction",
		Aliases: []string{"instructions", "si"},
		Short:   "Manage and run standing instructions",
	}
	instCmd.AddCommand(newInstructionCreateCommand(configPath))
	instCmd.AddCommand(newInstructionUpdateCommand(configPath))
	instCmd.AddCommand(newInstructionDeleteCommand(configPath))
	instCmd.AddCommand(newInstructionRunCommand(configPath))
	return instCmd
}

func newInstructionCreateCommand(configPath *string) *cobra.Command {
	var (
		name              string
		fromKind, toKind  string
		fromID, toID      int64
		transferKindStr   string
		instTypeStr       string
		priorityStr       string
		amountStr         string
		validFrom         string
		validTill         string
		recurrenceStr     string
		frequencyStr      string
		interval          int
		onDay, onMonth    int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a standing instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			fk, err := parseAccountKind(fromKind)
			if err != nil {
				return err
			}
			tk, err := parseAccountKind(toKind)
			if err != nil {
				return err
			}
			transferKind, err := parseTransferKind(transferKindStr)
			if err != nil {
				return err
			}
			instType, err := parseInstructionType(instTypeStr)
			if err != nil {
				return err
			}
			priority, err := parsePriority(priorityStr)
			if err != nil {
				return err
			}
			recurrence, err := parseRecurrenceType(recurrenceStr)
			if err != nil {
				return err
			}
			frequency, err := parsePeriodFrequency(frequencyStr)
			if err != nil {
				return err
			}

			amount := decimal.Zero
			if amountStr != "" {
				if amount, err = decimal.NewFromString(amountStr); err != nil {
					return fmt.Errorf("parsing amount %q: %w", amountStr, err)
				}
			}
			from := model.Today()
			if validFrom != "" {
				if from, err = model.ParseDate(validFrom); err != nil {
					return err
				}
			}
			var till model.Date
			if validTill != "" {
				if till, err = model.ParseDate(validTill); err != nil {
					return err
				}
			}

			inst, err := a.instructions.Create(cmd.Context(), model.CreateStandingInstruction{
				Name:                name,
				FromAccountKind:     fk,
				FromAccountID:       fromID,
				ToAccountKind:       tk,
				ToAccountID:         toID,
				TransferKind:        transferKind,
				InstructionType:     instType,
				Priority:            priority,
				Amount:              amount,
				ValidFrom:           from,
				ValidTill:           till,
				RecurrenceType:      recurrence,
				RecurrenceFrequency: frequency,
				RecurrenceInterval:  interval,
				RecurrenceOnDay:     onDay,
				RecurrenceOnMonth:   onMonth,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Standing instruction %d (%s) created\n", inst.ID, inst.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "unique instruction name (required)")
	cmd.Flags().StringVar(&fromKind, "from-kind", "savings", "source account kind (savings or loan)")
	cmd.Flags().Int64Var(&fromID, "from-id", 0, "source account id (required)")
	cmd.Flags().StringVar(&toKind, "to-kind", "savings", "destination account kind (savings or loan)")
	cmd.Flags().Int64Var(&toID, "to-id", 0, "destination account id (required)")
	cmd.Flags().StringVar(&transferKindStr, "transfer-kind", "account-transfer", "transfer kind executed on each run")
	cmd.Flags().StringVar(&instTypeStr, "type", "fixed", "instruction type (fixed or dues)")
	cmd.Flags().StringVar(&priorityStr, "priority", "medium", "priority (urgent, high, medium, low)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "fixed amount (required for fixed instructions)")
	cmd.Flags().StringVar(&validFrom, "valid-from", "", "first valid date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&validTill, "valid-till", "", "exclusive end date, YYYY-MM-DD (default open-ended)")
	cmd.Flags().StringVar(&recurrenceStr, "recurrence", "periodic", "recurrence type (periodic or as-per-dues)")
	cmd.Flags().StringVar(&frequencyStr, "frequency", "months", "period frequency (days, weeks, months, years)")
	cmd.Flags().IntVar(&interval, "interval", 1, "periods between runs")
	cmd.Flags().IntVar(&onDay, "on-day", 0, "day of month the run anchors to (0 = unanchored)")
	cmd.Flags().IntVar(&onMonth, "on-month", 0, "month the yearly run anchors to (0 = unanchored)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("from-id")
	_ = cmd.MarkFlagRequired("to-id")

	return cmd
}

func newInstructionUpdateCommand(configPath *string) *cobra.Command {
	var (
		id          int64
		priorityStr string
		statusStr   string
		amountStr   string
		validTill   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a standing instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			upd := model.UpdateStandingInstruction{ID: id}
			if cmd.Flags().Changed("priority") {
				p, err := parsePriority(priorityStr)
				if err != nil {
					return err
				}
				upd.Priority = &p
			}
			if cmd.Flags().Changed("status") {
				st, err := parseInstructionStatus(statusStr)
				if err != nil {
					return err
				}
				upd.Status = &st
			}
			if cmd.Flags().Changed("amount") {
				amount, err := decimal.NewFromString(amountStr)
				if err != nil {
					return fmt.Errorf("parsing amount %q: %w", amountStr, err)
				}
				upd.Amount = &amount
			}
			if cmd.Flags().Changed("valid-till") {
				till, err := model.ParseDate(validTill)
				if err != nil {
					return err
				}
				upd.ValidTill = &till
			}

			inst, err := a.instructions.Update(cmd.Context(), upd)
			if err != nil {
				return err
			}
			fmt.Printf("Standing instruction %d (%s) updated\n", inst.ID, inst.Name)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "instruction id (required)")
	cmd.Flags().StringVar(&priorityStr, "priority", "", "new priority (urgent, high, medium, low)")
	cmd.Flags().StringVar(&statusStr, "status", "", "new status (active or disabled)")
	cmd.Flags().StringVar(&amountStr, "amount", "", "new fixed amount")
	cmd.Flags().StringVar(&validTill, "valid-till", "", "new exclusive end date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newInstructionDeleteCommand(configPath *string) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Soft-delete a standing instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.instructions.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Standing instruction %d deleted\n", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "instruction id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newInstructionRunCommand(configPath *string) *cobra.Command {
	var asOfStr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute all standing instructions due on a date",
		Long: `Run selects every active standing instruction due on the given date and
executes its transfer. Failed instructions are recorded and skipped; the
remaining instructions still run. The command exits nonzero if any
instruction failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			asOf := model.Today()
			if asOfStr != "" {
				if asOf, err = model.ParseDate(asOfStr); err != nil {
					return err
				}
			}
			return a.runner.Run(cmd.Context(), asOf)
		},
	}

	cmd.Flags().StringVar(&asOfStr, "as-of", "", "run date, YYYY-MM-DD (default today)")

	return cmd
}

func parseInstructionType(s string) (model.InstructionType, error) {
	switch s {
	case "fixed":
		return model.InstructionFixed, nil
	case "dues":
		return model.InstructionDues, nil
	}
	return 0, fmt.Errorf("unknown instruction type %q (want fixed or dues)", s)
}

func parsePriority(s string) (model.InstructionPriority, error) {
	switch s {
	case "urgent":
		return model.PriorityUrgent, nil
	case "high":
		return model.PriorityHigh, nil
	case "medium":
		return model.PriorityMedium, nil
	case "low":
		return model.PriorityLow, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

func parseInstructionStatus(s string) (model.InstructionStatus, error) {
	switch s {
	case "active":
		return model.InstructionActive, nil
	case "disabled":
		return model.InstructionDisabled, nil
	}
	return 0, fmt.Errorf("unknown status %q (want active or disabled)", s)
}

func parseRecurrenceType(s string) (model.RecurrenceType, error) {
	switch s {
	case "periodic":
		return model.RecurrencePeriodic, nil
	case "as-per-dues":
		return model.RecurrenceAsPerDues, nil
	}
	return 0, fmt.Errorf("unknown recurrence type %q (want periodic or as-per-dues)", s)
}

func parsePeriodFrequency(s string) (model.PeriodFrequency, error) {
	switch s {
	case "days":
		return model.FrequencyDays, nil
	case "weeks":
		return model.FrequencyWeeks, nil
	case "months":
		return model.FrequencyMonths, nil
	case "years":
		return model.FrequencyYears, nil
	}
	return 0, fmt.Errorf("unknown frequency %q", s)
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corebank-dev/corebank/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "corebank",
		Short:   "Inter-account transfer and standing-instruction engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "corebank.yaml", "path to configuration file")

	rootCmd.AddCommand(newInitCommand(&configPath))
	rootCmd.AddCommand(newTransferCommand(&configPath))
	rootCmd.AddCommand(newInstructionsCommand(&configPath))

	return rootCmd
}

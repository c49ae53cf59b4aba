package main

import (
	"os"

	"github.com/corebank-dev/corebank/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

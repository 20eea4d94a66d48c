package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/cmd/noctivault/commands"
	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "noctivault",
		Short: "Resolve declared secret references into a masked secret tree",
		Long: `noctivault resolves a declarative set of secret references against a
local mock store or Google Secret Manager, and manages the encrypted
container protecting the local store at rest.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Logger = logging.New(debug, noColor)
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt for input")

	rootCmd.AddCommand(
		commands.NewKeyCommand(cfg),
		commands.NewLocalCommand(cfg),
		commands.NewGetCommand(cfg),
		commands.NewHashCommand(cfg),
	)

	return rootCmd.Execute()
}

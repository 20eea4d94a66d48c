package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/pkg/noctivault"
)

// NewHashCommand prints the display hash of a resolved secret, useful for
// comparing values across environments without revealing them.
func NewHashCommand(cfg *config.Config) *cobra.Command {
	var (
		source      string
		keyFile     string
		passphrase  string
		credentials string
	)

	cmd := &cobra.Command{
		Use:   "hash <location> <path>",
		Short: "Print the display hash of a secret value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := noctivault.New(noctivault.Settings{
				Source:          config.Source(source),
				KeyFile:         keyFile,
				Passphrase:      passphrase,
				CredentialsFile: credentials,
			}, cfg.Logger)
			if err != nil {
				return err
			}
			if _, err := client.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			digest, err := client.DisplayHash(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Secret source: local or remote (default local)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "Key file for an encrypted local store")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase for an encrypted local store")
	cmd.Flags().StringVar(&credentials, "credentials-file", "", "Service account credentials file for remote fetches")
	return cmd
}

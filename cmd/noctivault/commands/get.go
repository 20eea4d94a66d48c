package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/pkg/noctivault"
)

// NewGetCommand resolves a reference document and prints secret values.
func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		source      string
		keyFile     string
		passphrase  string
		credentials string
	)

	cmd := &cobra.Command{
		Use:   "get <location> [path]",
		Short: "Resolve secret references and print a value or the masked tree",
		Args:  cobra.RangeArgs(1, 2),
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
			tree, err := client.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(args) == 2 {
				value, err := client.Get(args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}

			masked, err := yaml.Marshal(tree.ToMap(false))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(masked))
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Secret source: local or remote (default local)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "Key file for an encrypted local store")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase for an encrypted local store")
	cmd.Flags().StringVar(&credentials, "credentials-file", "", "Service account credentials file for remote fetches")
	return cmd
}

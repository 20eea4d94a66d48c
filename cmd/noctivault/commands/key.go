package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/internal/keymat"
)

// NewKeyCommand groups key-material management subcommands.
func NewKeyCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage local store key material",
	}
	cmd.AddCommand(newKeyGenCommand(cfg))
	return cmd
}

func newKeyGenCommand(cfg *config.Config) *cobra.Command {
	var (
		out        string
		useKeyring bool
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random key file",
		Long: `Generate a fresh random 32-byte key for sealing the local store.

The key is written with owner-only permissions to the default path
(~/.config/noctivault/local.key) unless --out is given. With --keyring
the key is additionally stored in the OS keyring as a fallback source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := keymat.GenerateKeyFile(out)
			if err != nil {
				return err
			}
			if useKeyring {
				key, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := keymat.StoreInKeyring(key); err != nil {
					return fmt.Errorf("failed to store key in OS keyring: %w", err)
				}
				cfg.Logger.Info("key stored in OS keyring")
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Key file output path (default: config directory)")
	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "Also store the key in the OS keyring")
	return cmd
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/systmms/noctivault/internal/config"
	"github.com/systmms/noctivault/internal/envelope"
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/keymat"
	"github.com/systmms/noctivault/internal/storefile"
)

// NewLocalCommand groups local store management subcommands.
func NewLocalCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Seal, unseal, and verify the local store envelope",
	}
	cmd.AddCommand(
		newSealCommand(cfg),
		newUnsealCommand(cfg),
		newVerifyCommand(cfg),
	)
	return cmd
}

func newSealCommand(cfg *config.Config) *cobra.Command {
	var (
		keyFile    string
		passphrase string
		prompt     bool
		out        string
		rmPlain    bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "seal <path>",
		Short: "Seal the plaintext local store into an encrypted envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyFile != "" && passphrase != "" {
				return errors.New("specify either --key-file or --passphrase, not both")
			}

			plainPath, err := storefile.ResolvePlain(args[0])
			if err != nil {
				return err
			}
			outPath := out
			if outPath == "" {
				outPath = filepath.Join(filepath.Dir(plainPath), storefile.EncName)
			}
			if _, err := os.Stat(outPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}

			plaintext, err := os.ReadFile(plainPath)
			if err != nil {
				return err
			}

			// An explicit flag fixes the mode; the environment is only
			// consulted when the command line chose neither.
			var sealed []byte
			switch {
			case keyFile != "":
				var key []byte
				key, err = keymat.ResolveKey(keymat.Config{KeyFile: keyFile}, outPath)
				if err == nil {
					sealed, err = envelope.SealWithKey(plaintext, key)
				}
			case passphrase != "" || prompt:
				var pw string
				pw, err = sealPassphrase(cfg, passphrase, prompt)
				if err == nil {
					sealed, err = envelope.SealWithPassphrase(plaintext, pw)
				}
			case os.Getenv(keymat.EnvPassphrase) != "":
				sealed, err = envelope.SealWithPassphrase(plaintext, os.Getenv(keymat.EnvPassphrase))
			default:
				var key []byte
				key, err = keymat.ResolveKey(keymat.Config{}, outPath)
				if err == nil {
					sealed, err = envelope.SealWithKey(plaintext, key)
				}
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(outPath, sealed, 0o600); err != nil {
				return err
			}
			if rmPlain {
				if err := os.Remove(plainPath); err != nil && !os.IsNotExist(err) {
					return err
				}
				cfg.Logger.Info("removed plaintext store %s", plainPath)
			} else {
				cfg.Logger.Warn("plaintext store %s left in place (use --rm-plain to remove it)", plainPath)
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "Key file path")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase (prefer --prompt or the environment)")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Prompt for a passphrase")
	cmd.Flags().StringVar(&out, "out", "", "Envelope output path")
	cmd.Flags().BoolVar(&rmPlain, "rm-plain", false, "Remove the plaintext store after sealing")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing envelope")
	return cmd
}

func newUnsealCommand(cfg *config.Config) *cobra.Command {
	var (
		keyFile    string
		passphrase string
		prompt     bool
	)

	cmd := &cobra.Command{
		Use:   "unseal <enc-path>",
		Short: "Decrypt an envelope and print the plaintext store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := openEnvelope(cfg, args[0], keyFile, passphrase, prompt)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(plaintext))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "Key file path")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase (prefer --prompt or the environment)")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Prompt for a passphrase")
	return cmd
}

func newVerifyCommand(cfg *config.Config) *cobra.Command {
	var (
		keyFile    string
		passphrase string
		prompt     bool
	)

	cmd := &cobra.Command{
		Use:   "verify <enc-path>",
		Short: "Check that an envelope decrypts without printing plaintext",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := openEnvelope(cfg, args[0], keyFile, passphrase, prompt)
			var headerErr nverrors.InvalidEncHeaderError
			var decryptErr nverrors.DecryptError
			if errors.As(err, &headerErr) || errors.As(err, &decryptErr) {
				fmt.Fprintln(cmd.OutOrStdout(), "FAIL")
				cfg.Logger.Error("envelope verification failed: %v", err)
				cmd.SilenceUsage = true
				cmd.SilenceErrors = true
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "Key file path")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase (prefer --prompt or the environment)")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Prompt for a passphrase")
	return cmd
}

// openEnvelope reads an envelope and decrypts it with key material
// resolved per the envelope's own mode.
func openEnvelope(cfg *config.Config, encPath, keyFile, passphrase string, prompt bool) ([]byte, error) {
	data, err := os.ReadFile(encPath)
	if err != nil {
		return nil, err
	}
	mode, err := envelope.Mode(data)
	if err != nil {
		return nil, err
	}
	if mode == envelope.ModePassphrase {
		pw, err := keymat.ResolvePassphrase(
			keymat.Config{Passphrase: passphrase},
			prompt && !cfg.NonInteractive,
		)
		if err != nil {
			return nil, err
		}
		return envelope.OpenWithPassphrase(data, pw)
	}
	key, err := keymat.ResolveKey(keymat.Config{KeyFile: keyFile}, encPath)
	if err != nil {
		return nil, err
	}
	return envelope.OpenWithKey(data, key)
}

// sealPassphrase resolves a passphrase for sealing; it only consults the
// prompt when requested.
func sealPassphrase(cfg *config.Config, explicit string, prompt bool) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if pw := os.Getenv(keymat.EnvPassphrase); pw != "" {
		return pw, nil
	}
	if prompt {
		return keymat.ResolvePassphrase(keymat.Config{}, !cfg.NonInteractive)
	}
	return "", nverrors.MissingKeyMaterialError{Mode: "passphrase"}
}

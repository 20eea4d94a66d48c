// Package keymat resolves the key material used to open and seal local
// store envelopes.
//
// Key-file mode precedence: explicit setting, then the NOCTIVAULT_KEY_FILE
// environment variable, then a local.key file next to the envelope, then
// the default config-directory path, then the OS keyring. Passphrase mode
// precedence: explicit setting, then NOCTIVAULT_PASSPHRASE, then an
// interactive prompt. When nothing resolves the caller gets
// MissingKeyMaterialError before any decrypt attempt.
package keymat

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/envelope"
)

const (
	// EnvKeyFile names an override path to the key file.
	EnvKeyFile = "NOCTIVAULT_KEY_FILE"
	// EnvPassphrase supplies a passphrase directly for non-interactive use.
	EnvPassphrase = "NOCTIVAULT_PASSPHRASE"

	keyringService = "noctivault"
	keyringUser    = "local-store"

	siblingKeyName = "local.key"
)

// Config carries explicit key-material settings. The zero value means
// "resolve from the environment".
type Config struct {
	KeyFile    string
	Passphrase string
}

// DefaultKeyPath returns the fixed default key-file location,
// ~/.config/noctivault/local.key.
func DefaultKeyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "noctivault", siblingKeyName), nil
}

// ResolveKey resolves raw key bytes for key-file mode. envelopePath, when
// non-empty, anchors the sibling local.key lookup. An explicit or
// env-provided path that cannot be read is an error rather than a
// fall-through, since the caller asked for that file specifically.
func ResolveKey(cfg Config, envelopePath string) ([]byte, error) {
	if cfg.KeyFile != "" {
		return readKeyFile(cfg.KeyFile)
	}
	if path := os.Getenv(EnvKeyFile); path != "" {
		return readKeyFile(path)
	}
	if envelopePath != "" {
		sibling := filepath.Join(filepath.Dir(envelopePath), siblingKeyName)
		if key, err := readKeyFile(sibling); err == nil {
			return key, nil
		}
	}
	if defaultPath, err := DefaultKeyPath(); err == nil {
		if key, err := readKeyFile(defaultPath); err == nil {
			return key, nil
		}
	}
	if key, err := keyringLookup(); err == nil {
		return key, nil
	}
	return nil, nverrors.MissingKeyMaterialError{Mode: "key-file"}
}

// ResolvePassphrase resolves a passphrase for passphrase mode. The prompt
// only runs when interactive is set and stdin is a terminal.
func ResolvePassphrase(cfg Config, interactive bool) (string, error) {
	if cfg.Passphrase != "" {
		return cfg.Passphrase, nil
	}
	if pw := os.Getenv(EnvPassphrase); pw != "" {
		return pw, nil
	}
	if interactive && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		if len(raw) > 0 {
			return string(raw), nil
		}
	}
	return "", nverrors.MissingKeyMaterialError{Mode: "passphrase"}
}

// GenerateKeyFile writes a fresh random 32-byte key to out (or the default
// path when out is empty) with owner-only permissions and returns the
// written path.
func GenerateKeyFile(out string) (string, error) {
	path := out
	if path == "" {
		var err error
		path, err = DefaultKeyPath()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}
	key := make([]byte, envelope.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	return path, nil
}

// StoreInKeyring saves a key in the OS keyring as a last-resort source for
// hosts that cannot keep a key file around.
func StoreInKeyring(key []byte) error {
	return keyring.Set(keyringService, keyringUser, base64.StdEncoding.EncodeToString(key))
}

func keyringLookup() ([]byte, error) {
	encoded, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("keyring entry is not base64: %w", err)
	}
	if len(key) != envelope.KeySize {
		return nil, errors.New("keyring entry has wrong key length")
	}
	return key, nil
}

func readKeyFile(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(key) != envelope.KeySize {
		return nil, fmt.Errorf("key file %s must hold %d bytes, got %d", path, envelope.KeySize, len(key))
	}
	return key, nil
}

// Package storefile resolves the on-disk locations of noctivault
// documents: the reference configuration, and the local store in its
// plaintext or encrypted form.
package storefile

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// PlainName is the plaintext local store file name.
	PlainName = "noctivault.local-store.yaml"
	// EncName is the encrypted local store file name.
	EncName = "noctivault.local-store.enc"
	// RefsName is the reference configuration file name.
	RefsName = "noctivault.yaml"
)

// Source is a resolved local store location.
type Source struct {
	Path      string
	Encrypted bool
}

// ResolveStore resolves a directory or file path to a concrete local
// store. For a directory the encrypted store is selected in preference to
// the plaintext one when both exist.
func ResolveStore(base string) (Source, error) {
	info, err := os.Stat(base)
	if err != nil {
		return Source{}, fmt.Errorf("local store %s not found: %w", base, err)
	}
	if !info.IsDir() {
		return Source{Path: base, Encrypted: filepath.Ext(base) == ".enc"}, nil
	}

	enc := filepath.Join(base, EncName)
	if _, err := os.Stat(enc); err == nil {
		return Source{Path: enc, Encrypted: true}, nil
	}
	plain := filepath.Join(base, PlainName)
	if _, err := os.Stat(plain); err == nil {
		return Source{Path: plain, Encrypted: false}, nil
	}
	return Source{}, fmt.Errorf("no %s or %s in %s", EncName, PlainName, base)
}

// ResolveRefs resolves a directory or file path to the reference
// configuration file.
func ResolveRefs(base string) (string, error) {
	info, err := os.Stat(base)
	if err != nil {
		return "", fmt.Errorf("reference config %s not found: %w", base, err)
	}
	if !info.IsDir() {
		return base, nil
	}
	path := filepath.Join(base, RefsName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%s not found in %s: %w", RefsName, base, err)
	}
	return path, nil
}

// ResolvePlain resolves the plaintext store for sealing. A file path must
// point at the canonical plaintext file name.
func ResolvePlain(base string) (string, error) {
	info, err := os.Stat(base)
	if err != nil {
		return "", fmt.Errorf("plaintext store %s not found: %w", base, err)
	}
	if info.IsDir() {
		path := filepath.Join(base, PlainName)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s not found in %s: %w", PlainName, base, err)
		}
		return path, nil
	}
	if filepath.Base(base) != PlainName {
		return "", fmt.Errorf("unsupported file name %s (expected %s)", filepath.Base(base), PlainName)
	}
	return base, nil
}

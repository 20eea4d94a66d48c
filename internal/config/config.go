// Package config defines the explicit, immutable settings passed into
// noctivault operations. There is no process-wide mutable configuration.
package config

import (
	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/logging"
)

// Source selects where secret values come from.
type Source string

const (
	// SourceLocal resolves references against the local mock store.
	SourceLocal Source = "local"
	// SourceRemote resolves references against Google Secret Manager.
	SourceRemote Source = "remote"
)

// Settings configures one client instance. The zero value selects the
// local source with environment-driven key material.
type Settings struct {
	// Source selects local or remote resolution. Empty means local.
	Source Source
	// KeyFile is an explicit key-file path for an encrypted local store.
	KeyFile string
	// Passphrase is an explicit passphrase for an encrypted local store.
	Passphrase string
	// CredentialsFile optionally points the remote provider at a service
	// account key file.
	CredentialsFile string
}

// EffectiveSource returns the source with the local default applied.
func (s Settings) EffectiveSource() Source {
	if s.Source == "" {
		return SourceLocal
	}
	return s.Source
}

// Validate rejects unknown sources.
func (s Settings) Validate() error {
	switch s.EffectiveSource() {
	case SourceLocal, SourceRemote:
		return nil
	default:
		return nverrors.UnknownSourceError{Source: string(s.Source)}
	}
}

// Config holds the CLI runtime configuration shared by commands.
type Config struct {
	Logger         *logging.Logger
	NonInteractive bool
}

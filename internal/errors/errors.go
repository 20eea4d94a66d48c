// Package errors defines the canonical error taxonomy for noctivault.
//
// Every error carries enough context for diagnosis (platform, project,
// reference name, version, or resolved path) and never includes a raw
// secret value in its message.
package errors

import "fmt"

// SchemaValidationError reports a malformed or incomplete document.
type SchemaValidationError struct {
	Field   string
	Message string
}

func (e SchemaValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema validation failed for field '%s': %s", e.Field, e.Message)
	}
	return "schema validation failed: " + e.Message
}

// CombinedConfigNotAllowedError reports a document that mixes secret-refs
// and secret-mocks. A document must contain exactly one of the two.
type CombinedConfigNotAllowedError struct{}

func (e CombinedConfigNotAllowedError) Error() string {
	return "document must not contain both secret-refs and secret-mocks"
}

// MissingLocalMockError reports a reference with no matching mock entry.
type MissingLocalMockError struct {
	Platform string
	Project  string
	Name     string
	Version  string // resolved version or "latest"
}

func (e MissingLocalMockError) Error() string {
	return fmt.Sprintf("no local mock for %s/%s/%s@%s", e.Platform, e.Project, e.Name, e.Version)
}

// TypeCastError reports a raw value that cannot be converted to its
// declared type. The raw value itself is deliberately omitted.
type TypeCastError struct {
	Type string
	Path string
}

func (e TypeCastError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("value at '%s' cannot be cast to %s", e.Path, e.Type)
	}
	return "value cannot be cast to " + e.Type
}

// DuplicatePathError reports two references resolving to the same tree path.
type DuplicatePathError struct {
	Path string
}

func (e DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate secret path '%s'", e.Path)
}

// PathNotFoundError reports a lookup of an absent tree path.
type PathNotFoundError struct {
	Path string
}

func (e PathNotFoundError) Error() string {
	return fmt.Sprintf("secret path '%s' not found", e.Path)
}

// InvalidEncHeaderError reports a structurally invalid envelope header:
// bad magic, unknown mode or KDF id, or truncated fields.
type InvalidEncHeaderError struct {
	Reason string
}

func (e InvalidEncHeaderError) Error() string {
	return "invalid envelope header: " + e.Reason
}

// DecryptError reports an AEAD open failure. It covers both a wrong key
// and a tampered ciphertext with a single fixed message so the failure
// mode carries no oracle information.
type DecryptError struct{}

func (e DecryptError) Error() string {
	return "decryption failed"
}

// MissingKeyMaterialError reports that no key material could be resolved
// before a decrypt was attempted.
type MissingKeyMaterialError struct {
	Mode string // "key-file" or "passphrase"
}

func (e MissingKeyMaterialError) Error() string {
	return fmt.Sprintf("no %s key material configured", e.Mode)
}

// MissingRemoteSecretError reports a secret the remote manager does not have.
type MissingRemoteSecretError struct {
	Project string
	Name    string
	Version string
}

func (e MissingRemoteSecretError) Error() string {
	return fmt.Sprintf("remote secret %s/%s@%s not found", e.Project, e.Name, e.Version)
}

// AuthorizationError reports a permission or authentication failure at the
// remote secret manager.
type AuthorizationError struct {
	Message string
	Err     error
}

func (e AuthorizationError) Error() string {
	return "remote authorization failed: " + e.Message
}

func (e AuthorizationError) Unwrap() error { return e.Err }

// RemoteArgumentError reports a malformed remote request.
type RemoteArgumentError struct {
	Message string
}

func (e RemoteArgumentError) Error() string {
	return "invalid remote request: " + e.Message
}

// RemoteUnavailableError reports transient unavailability after retries
// are exhausted, or a cancelled/timed-out fetch.
type RemoteUnavailableError struct {
	Message string
	Err     error
}

func (e RemoteUnavailableError) Error() string {
	return "remote secret manager unavailable: " + e.Message
}

func (e RemoteUnavailableError) Unwrap() error { return e.Err }

// RemoteDecodeError reports a secret payload that is not valid UTF-8.
type RemoteDecodeError struct {
	Project string
	Name    string
}

func (e RemoteDecodeError) Error() string {
	return fmt.Sprintf("remote secret %s/%s payload is not valid UTF-8", e.Project, e.Name)
}

// UnknownSourceError reports a settings value selecting an unsupported source.
type UnknownSourceError struct {
	Source string
}

func (e UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown secret source '%s' (expected 'local' or 'remote')", e.Source)
}

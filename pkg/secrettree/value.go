// Package secrettree holds resolved secret values in an immutable nested
// structure with a hard masking invariant: no implicit code path (fmt,
// JSON, YAML) ever yields a raw value. Raw content is reachable only
// through the explicit reveal operations.
package secrettree

import (
	"encoding/hex"
	"strconv"

	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/secure"
	"golang.org/x/crypto/sha3"
)

// Mask is the fixed token returned by every implicit string conversion of
// a secret value or of a node containing one.
const Mask = "***"

// Type is the declared cast type of a leaf value.
type Type string

const (
	TypeString Type = "str"
	TypeInt    Type = "int"
)

// Value is an immutable secret leaf: the pre-cast raw string plus its
// declared type. The raw string is set exactly once at construction and
// kept in a memory-protected enclave.
type Value struct {
	raw *secure.Enclave
	typ Type
}

// NewValue seals raw into a leaf value of the given type.
func NewValue(raw string, typ Type) *Value {
	return &Value{raw: secure.SealString(raw), typ: typ}
}

// Type returns the declared cast type.
func (v *Value) Type() Type { return v.typ }

// Reveal returns the pre-cast raw string. This is the only operation that
// exposes the uncast secret.
func (v *Value) Reveal() string {
	return v.raw.Reveal()
}

// Get returns the raw value cast to its declared type: string for "str",
// int for "int". A non-numeric raw under "int" fails with TypeCastError.
func (v *Value) Get() (interface{}, error) {
	raw := v.Reveal()
	switch v.typ {
	case TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nverrors.TypeCastError{Type: string(TypeInt)}
		}
		return n, nil
	default:
		return raw, nil
	}
}

// Equals casts candidate per the declared type and compares exactly, with
// no normalization or trimming. A candidate that cannot be cast fails with
// TypeCastError.
func (v *Value) Equals(candidate string) (bool, error) {
	raw := v.Reveal()
	switch v.typ {
	case TypeInt:
		want, err := strconv.Atoi(raw)
		if err != nil {
			return false, nverrors.TypeCastError{Type: string(TypeInt)}
		}
		got, err := strconv.Atoi(candidate)
		if err != nil {
			return false, nverrors.TypeCastError{Type: string(TypeInt)}
		}
		return got == want, nil
	default:
		return candidate == raw, nil
	}
}

// DisplayHash returns the SHA3-256 hex digest of the UTF-8 encoding of the
// pre-cast raw string. Two values with identical raw source text hash
// identically even when cast differently.
func (v *Value) DisplayHash() string {
	sum := sha3.Sum256([]byte(v.Reveal()))
	return hex.EncodeToString(sum[:])
}

// String implements fmt.Stringer and always returns the mask token.
func (v *Value) String() string { return Mask }

// GoString masks %#v formatting as well.
func (v *Value) GoString() string { return Mask }

// MarshalJSON masks accidental JSON serialization.
func (v *Value) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(Mask)), nil
}

// MarshalYAML masks accidental YAML serialization.
func (v *Value) MarshalYAML() (interface{}, error) {
	return Mask, nil
}

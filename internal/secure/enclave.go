// Package secure stores raw secret bytes in memguard enclaves so resolved
// values are encrypted at rest in memory and protected from swapping.
package secure

import (
	"github.com/awnumar/memguard"
)

// Enclave holds one immutable secret. The plaintext is sealed into a
// memguard enclave at construction and only materialized transiently by
// Reveal.
type Enclave struct {
	inner *memguard.Enclave
}

// Seal moves data into a protected memory region. memguard wipes the
// source slice after copying, so the caller must not read data afterwards.
// Empty data stays unsealed; memguard cannot hold zero-length buffers.
func Seal(data []byte) *Enclave {
	if len(data) == 0 {
		return &Enclave{}
	}
	return &Enclave{inner: memguard.NewEnclave(data)}
}

// SealString seals a string value.
func SealString(s string) *Enclave {
	return Seal([]byte(s))
}

// Reveal decrypts the enclave and returns a copy of the plaintext as a
// string. The locked buffer backing the decryption is wiped before return;
// the returned string is an ordinary Go string the caller must treat as
// sensitive.
func (e *Enclave) Reveal() string {
	if e.inner == nil {
		return ""
	}
	buf, err := e.inner.Open()
	if err != nil {
		// Open fails only if the enclave was corrupted in memory; there
		// is no recovery path that preserves the secret.
		memguard.SafePanic(err)
	}
	defer buf.Destroy()
	return string(buf.Bytes())
}

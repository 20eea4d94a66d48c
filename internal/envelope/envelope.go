// Package envelope implements the NVLE1 authenticated-encryption container
// wrapping a plaintext local store document.
//
// Layout (multi-byte fields big-endian):
//
//	MAGIC "NVLE1" (5B) | MODE (1B: 0x00 key-file, 0x01 passphrase)
//	[ KDF_ID (1B, 0x01 argon2id) | time_cost (1B) | parallelism (1B)
//	  | memory_cost (4B) | salt_len (1B) | salt ]        passphrase only
//	NONCE (12B) | CIPHERTEXT || TAG
//
// The cipher is AES-256-GCM over the UTF-8 plaintext with the magic bytes
// as associated data. Nonce and salt are freshly random on every seal and
// never reused for a given key.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"

	nverrors "github.com/systmms/noctivault/internal/errors"
)

const (
	// Magic identifies an NVLE1 envelope and doubles as the AEAD
	// associated data.
	Magic = "NVLE1"

	ModeKeyFile    byte = 0x00
	ModePassphrase byte = 0x01

	KDFArgon2id byte = 0x01

	NonceSize = 12
	KeySize   = 32

	saltSize = 16
	tagSize  = 16
)

// Argon2id parameters for sealing. Envelopes record their own parameters,
// so these only affect newly produced ones.
const (
	argonTime        = 2
	argonMemoryKiB   = 64 * 1024
	argonParallelism = 1
)

// SealWithKey encrypts plaintext under a raw 32-byte key.
func SealWithKey(plaintext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := make([]byte, 0, len(Magic)+1+NonceSize+len(plaintext)+tagSize)
	out = append(out, Magic...)
	out = append(out, ModeKeyFile)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte(Magic)), nil
}

// OpenWithKey decrypts a key-file-mode envelope. Structural problems fail
// with InvalidEncHeaderError; any tag verification failure (wrong key or
// tampered ciphertext alike) fails with DecryptError.
func OpenWithKey(data, key []byte) ([]byte, error) {
	body, err := parseHeader(data, ModeKeyFile)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return open(aead, body)
}

// SealWithPassphrase derives a key from the passphrase with Argon2id over
// a fresh random salt and encrypts plaintext under it.
func SealWithPassphrase(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemoryKiB, argonParallelism, KeySize)
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, len(Magic)+9+saltSize+NonceSize)
	header = append(header, Magic...)
	header = append(header, ModePassphrase, KDFArgon2id, argonTime, argonParallelism)
	header = binary.BigEndian.AppendUint32(header, argonMemoryKiB)
	header = append(header, byte(saltSize))
	header = append(header, salt...)
	header = append(header, nonce...)
	return aead.Seal(header, nonce, plaintext, []byte(Magic)), nil
}

// OpenWithPassphrase decrypts a passphrase-mode envelope using the KDF
// parameters recorded in its header.
func OpenWithPassphrase(data []byte, passphrase string) ([]byte, error) {
	body, err := parseHeader(data, ModePassphrase)
	if err != nil {
		return nil, err
	}
	// KDF block: id, time_cost, parallelism, memory_cost(4), salt_len.
	if len(body) < 8 {
		return nil, nverrors.InvalidEncHeaderError{Reason: "truncated KDF block"}
	}
	if body[0] != KDFArgon2id {
		return nil, nverrors.InvalidEncHeaderError{Reason: fmt.Sprintf("unsupported KDF id 0x%02x", body[0])}
	}
	timeCost := body[1]
	parallelism := body[2]
	memoryCost := binary.BigEndian.Uint32(body[3:7])
	saltLen := int(body[7])
	if timeCost == 0 || parallelism == 0 || memoryCost == 0 {
		return nil, nverrors.InvalidEncHeaderError{Reason: "invalid KDF parameters"}
	}
	body = body[8:]
	if len(body) < saltLen {
		return nil, nverrors.InvalidEncHeaderError{Reason: "truncated salt"}
	}
	salt := body[:saltLen]

	key := argon2.IDKey([]byte(passphrase), salt, uint32(timeCost), memoryCost, parallelism, KeySize)
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return open(aead, body[saltLen:])
}

// Mode returns the mode byte of an envelope without decrypting it.
func Mode(data []byte) (byte, error) {
	if len(data) < len(Magic)+1 {
		return 0, nverrors.InvalidEncHeaderError{Reason: "envelope too short"}
	}
	if string(data[:len(Magic)]) != Magic {
		return 0, nverrors.InvalidEncHeaderError{Reason: "missing or invalid magic"}
	}
	mode := data[len(Magic)]
	if mode != ModeKeyFile && mode != ModePassphrase {
		return 0, nverrors.InvalidEncHeaderError{Reason: fmt.Sprintf("unknown mode 0x%02x", mode)}
	}
	return mode, nil
}

// IsEnvelope reports whether data starts with the NVLE1 magic.
func IsEnvelope(data []byte) bool {
	return len(data) >= len(Magic) && string(data[:len(Magic)]) == Magic
}

// parseHeader validates magic and mode and returns everything after the
// mode byte.
func parseHeader(data []byte, wantMode byte) ([]byte, error) {
	mode, err := Mode(data)
	if err != nil {
		return nil, err
	}
	if mode != wantMode {
		if wantMode == ModeKeyFile {
			return nil, nverrors.InvalidEncHeaderError{Reason: "not a key-file mode envelope"}
		}
		return nil, nverrors.InvalidEncHeaderError{Reason: "not a passphrase mode envelope"}
	}
	return data[len(Magic)+1:], nil
}

func open(aead cipher.AEAD, body []byte) ([]byte, error) {
	if len(body) < NonceSize+tagSize {
		return nil, nverrors.InvalidEncHeaderError{Reason: "truncated ciphertext"}
	}
	nonce := body[:NonceSize]
	plaintext, err := aead.Open(nil, nonce, body[NonceSize:], []byte(Magic))
	if err != nil {
		return nil, nverrors.DecryptError{}
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

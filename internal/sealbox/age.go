// Package sealbox encrypts small secrets with age passphrase recipients.
package sealbox

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync/atomic"

	"filippo.io/age"
)

// DefaultWorkFactor is the scrypt work factor used for new ciphertexts.
const DefaultWorkFactor = 15

// KeyLength is the byte length of keys returned by NewKey.
const KeyLength = 32

//nolint:gochecknoglobals // tests lower the work factor
var workFactor atomic.Int32

func init() {
	workFactor.Store(DefaultWorkFactor)
}

// SetWorkFactor changes the scrypt work factor for subsequent Seal calls.
func SetWorkFactor(logN int) {
	workFactor.Store(int32(logN)) //nolint:gosec // small positive value
}

// NewKey returns a random hex-encoded key suitable as a passphrase.
func NewKey() (string, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts plaintext for the passphrase.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(int(workFactor.Load()))

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// Open decrypts ciphertext produced by Seal.
func Open(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("initializing decryption: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted data: %w", err)
	}

	return plaintext, nil
}

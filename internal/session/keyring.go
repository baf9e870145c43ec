package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound indicates the keyring holds no entry for a key.
var ErrSecretNotFound = errors.New("keyring secret not found")

// checkUser names the throwaway entry written by checkKeyring.
const checkUser = "availability-check"

// OSKeyring stores secrets in the OS keychain (Keychain, Secret Service,
// Windows Credential Manager).
type OSKeyring struct{}

// NewOSKeyring returns the OS keychain.
func NewOSKeyring() *OSKeyring {
	return &OSKeyring{}
}

// Set implements Keyring.
func (k *OSKeyring) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}

// Get implements Keyring. A missing entry matches ErrSecretNotFound.
func (k *OSKeyring) Get(service, user string) (string, error) {
	v, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %w", ErrSecretNotFound, err)
	}
	return v, err
}

// Delete implements Keyring. Deleting a missing entry is not an error.
func (k *OSKeyring) Delete(service, user string) error {
	if err := keyring.Delete(service, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// checkKeyring writes, reads back and removes a random value under the session
// service. Any failure means sessions cannot be sealed.
func checkKeyring(kr Keyring) bool {
	want := uuid.NewString()
	if err := kr.Set(ServiceName, checkUser, want); err != nil {
		return false
	}
	got, err := kr.Get(ServiceName, checkUser)
	if err != nil || got != want {
		_ = kr.Delete(ServiceName, checkUser)
		return false
	}
	return kr.Delete(ServiceName, checkUser) == nil
}

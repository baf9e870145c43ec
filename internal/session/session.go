// Package session persists wallet pairings between bpay invocations.
//
// Session metadata (topic, accounts, peer, expiry) is stored as one JSON
// file per topic. The bridge resume key, which is enough to restore the
// pairing, is sealed with a random key kept in the OS keyring. Without a
// keyring nothing is persisted and every invocation pairs afresh.
package session

import (
	"errors"
	"time"

	"github.com/borderlesspay/bpay/internal/connector"
)

// ServiceName is the keyring service for bpay session keys.
const ServiceName = "bpay-session"

// Session errors.
var (
	// ErrKeyringUnavailable indicates the OS keyring is not available.
	ErrKeyringUnavailable = errors.New("keyring unavailable")

	// ErrSessionNotFound indicates no stored session exists for a topic.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionCorrupted indicates a session file could not be read back.
	ErrSessionCorrupted = errors.New("session corrupted")

	// ErrInvalidTopic indicates a topic unsafe to use as a file name.
	ErrInvalidTopic = errors.New("invalid session topic")
)

// Info describes a stored session without its resume key.
type Info struct {
	Topic     string    `json:"topic"`
	AccountID string    `json:"accountId"`
	Peer      string    `json:"peer"`
	Expiry    time.Time `json:"expiry"`
	SavedAt   time.Time `json:"savedAt"`
}

// Expired reports whether the session expiry has passed.
func (i Info) Expired(now time.Time) bool {
	return !i.Expiry.IsZero() && now.After(i.Expiry)
}

// Store persists wallet sessions.
type Store interface {
	// Available reports whether sessions can be persisted.
	Available() bool

	// Save stores or replaces a session.
	Save(s connector.Session) error

	// Load returns every unexpired session with its resume key restored.
	// Expired or unreadable entries are removed.
	Load() ([]connector.Session, error)

	// List describes the stored sessions.
	List() ([]Info, error)

	// Delete removes one session.
	Delete(topic string) error

	// DeleteAll removes every session and the sealing key, returning how
	// many sessions were removed.
	DeleteAll() int
}

// Keyring defines the interface for secure key storage.
// This abstraction allows for testing with mock implementations.
type Keyring interface {
	// Set stores a secret in the keyring.
	Set(service, user, password string) error

	// Get retrieves a secret from the keyring.
	Get(service, user string) (string, error)

	// Delete removes a secret from the keyring.
	Delete(service, user string) error
}

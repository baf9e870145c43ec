// Package connector defines the wallet connector abstraction. The pairing
// protocol itself is owned by the vendor tooling behind an implementation;
// this package only describes what the rest of bpay needs from it.
package connector

import (
	"context"
	"time"

	"github.com/borderlesspay/bpay/internal/ledger"
)

// Peer describes the wallet on the other end of a session.
type Peer struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Icons       []string `json:"icons,omitempty"`
}

// Session is an authenticated pairing with a wallet.
type Session struct {
	Topic string `json:"topic"`
	// Accounts are namespaced, e.g. "hedera:testnet:0.0.1234".
	Accounts []string  `json:"accounts"`
	Expiry   time.Time `json:"expiry"`
	Peer     Peer      `json:"peer"`
	// ResumeKey lets the bridge restore the pairing in a later process.
	ResumeKey string `json:"resumeKey,omitempty"`
}

// AccountID returns the first ledger account id of the session.
func (s Session) AccountID() string {
	return ledger.FirstAccount(s.Accounts)
}

// Expired reports whether the session expiry has passed. A zero expiry
// never expires.
func (s Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && now.After(s.Expiry)
}

// FirstAccount returns the first account id found across sessions.
func FirstAccount(sessions []Session) string {
	for _, s := range sessions {
		if id := s.AccountID(); id != "" {
			return id
		}
	}
	return ""
}

// EventKind identifies a session lifecycle notification.
type EventKind string

// Lifecycle notifications.
const (
	IframeSessionCreated EventKind = "iframe_session_created"
	SessionUpdated       EventKind = "session_update"
	SessionDeleted       EventKind = "session_delete"
	SessionEvent         EventKind = "session_event"
)

// Event is a lifecycle notification from the connector. Session is set for
// created and updated sessions; Name and Data for wallet events such as
// accountsChanged.
type Event struct {
	Kind    EventKind
	Topic   string
	Session *Session
	Name    string
	Data    []string
}

// Handler receives lifecycle notifications.
type Handler func(Event)

// Metadata is presented to the wallet when pairing.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

// Options configure a connector.
type Options struct {
	Network   ledger.Network
	ProjectID string
	Methods   []string
	Events    []string
	Metadata  Metadata
	// Resume are sessions persisted by an earlier process.
	Resume []Session
}

// Connector is the vendor wallet-connection client.
type Connector interface {
	// Connect starts pairing. onURI receives the pairing URI as soon as it
	// exists. The returned session may carry no accounts.
	Connect(ctx context.Context, onURI func(uri string)) (*Session, error)

	// Sessions returns the sessions currently known to the connector.
	Sessions() []Session

	// Disconnect ends one session.
	Disconnect(ctx context.Context, topic string) error

	// DisconnectAll ends every session.
	DisconnectAll(ctx context.Context) error

	// SignAndExecuteTransaction asks the wallet to sign and submit a frozen
	// transaction and returns the transaction id.
	SignAndExecuteTransaction(ctx context.Context, signerAccountID string, tx []byte) (string, error)

	// OnEvent registers a lifecycle handler. Handlers registered after an
	// event fired do not see it.
	OnEvent(h Handler)

	// Close releases the connector.
	Close() error
}

// Factory constructs connectors.
type Factory func(ctx context.Context, opts Options) (Connector, error)

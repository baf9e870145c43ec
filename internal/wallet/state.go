package wallet

import (
	"sync"

	"github.com/borderlesspay/bpay/internal/events"
)

// Status is the connection status.
type Status string

// Connection statuses.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Snapshot is a copy of the connection state.
type Snapshot struct {
	Status    Status `json:"status"`
	AccountID string `json:"accountId,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// State is the process's connection state. Transitions into and out of
// connected are broadcast on the bus, each at most once per transition.
type State struct {
	mu        sync.Mutex
	status    Status
	accountID string
	lastError string
	bus       *events.Bus
}

// NewState creates a disconnected state publishing on bus, which may be nil.
func NewState(bus *events.Bus) *State {
	return &State{status: StatusDisconnected, bus: bus}
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Status: s.status, AccountID: s.accountID, LastError: s.lastError}
}

// Connected returns the connected account id, or "" when not connected.
func (s *State) Connected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusConnected {
		return ""
	}
	return s.accountID
}

// MarkConnecting records the start of a connection attempt. A connected
// state is left untouched.
func (s *State) MarkConnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusConnected {
		return
	}
	s.status = StatusConnecting
	s.lastError = ""
}

// MarkConnected records a connected account and broadcasts wallet-connect
// when the status or account changed. It reports whether it did.
func (s *State) MarkConnected(accountID string) bool {
	if accountID == "" {
		return false
	}

	s.mu.Lock()
	changed := s.status != StatusConnected || s.accountID != accountID
	s.status = StatusConnected
	s.accountID = accountID
	s.lastError = ""
	s.mu.Unlock()

	if changed && s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.WalletConnect, AccountID: accountID})
	}
	return changed
}

// MarkDisconnected clears the account. wallet-disconnect is broadcast only
// when the state was connected, so repeated calls publish once.
func (s *State) MarkDisconnected() bool {
	s.mu.Lock()
	wasConnected := s.status == StatusConnected
	s.status = StatusDisconnected
	s.accountID = ""
	s.lastError = ""
	s.mu.Unlock()

	if wasConnected && s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.WalletDisconnect})
	}
	return wasConnected
}

// MarkFailed records a failed attempt. The status becomes disconnected and
// msg is kept for display. A connected state is left untouched.
func (s *State) MarkFailed(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusConnected {
		return
	}
	s.status = StatusDisconnected
	s.accountID = ""
	s.lastError = msg
}

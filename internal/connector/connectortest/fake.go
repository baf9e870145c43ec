// Package connectortest provides an in-memory connector for tests.
package connectortest

import (
	"context"
	"errors"
	"sync"

	"github.com/borderlesspay/bpay/internal/connector"
)

// ErrClosed is returned by calls on a closed fake.
var ErrClosed = errors.New("connector closed")

// Fake is a scriptable connector.Connector.
type Fake struct {
	mu sync.Mutex

	// URI is handed to onURI when Connect starts. Empty skips the callback.
	URI string
	// ConnectFunc, when set, decides the Connect result. It runs after onURI.
	ConnectFunc func(ctx context.Context) (*connector.Session, error)
	// SignFunc, when set, decides the SignAndExecuteTransaction result.
	SignFunc func(signer string, tx []byte) (string, error)

	sessions       []connector.Session
	handlers       []connector.Handler
	closed         bool
	connectCalls   int
	disconnectAlls int
	signed         [][]byte
}

var _ connector.Connector = (*Fake)(nil)

// New creates a fake holding the given sessions.
func New(sessions ...connector.Session) *Fake {
	return &Fake{sessions: sessions}
}

// Connect implements connector.Connector.
func (f *Fake) Connect(ctx context.Context, onURI func(string)) (*connector.Session, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	f.connectCalls++
	uri := f.URI
	fn := f.ConnectFunc
	f.mu.Unlock()

	if uri != "" && onURI != nil {
		onURI(uri)
	}
	if fn != nil {
		return fn(ctx)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// Sessions implements connector.Connector.
func (f *Fake) Sessions() []connector.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]connector.Session, len(f.sessions))
	copy(out, f.sessions)
	return out
}

// Disconnect implements connector.Connector.
func (f *Fake) Disconnect(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.Topic != topic {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

// DisconnectAll implements connector.Connector.
func (f *Fake) DisconnectAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectAlls++
	f.sessions = nil
	return nil
}

// SignAndExecuteTransaction implements connector.Connector.
func (f *Fake) SignAndExecuteTransaction(_ context.Context, signer string, tx []byte) (string, error) {
	f.mu.Lock()
	f.signed = append(f.signed, tx)
	fn := f.SignFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(signer, tx)
	}
	return signer + "@1700000000.000000000", nil
}

// OnEvent implements connector.Connector.
func (f *Fake) OnEvent(h connector.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
}

// Close implements connector.Connector.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.handlers = nil
	return nil
}

// AddSession makes a session visible to Sessions, as a wallet approving
// the pairing would.
func (f *Fake) AddSession(s connector.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
}

// Emit delivers ev to every registered handler.
func (f *Fake) Emit(ev connector.Event) {
	f.mu.Lock()
	handlers := append([]connector.Handler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Handlers returns the number of registered handlers.
func (f *Fake) Handlers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// ConnectCalls returns how often Connect ran.
func (f *Fake) ConnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

// DisconnectAllCalls returns how often DisconnectAll ran.
func (f *Fake) DisconnectAllCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectAlls
}

// Signed returns the transactions passed to SignAndExecuteTransaction.
func (f *Fake) Signed() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.signed...)
}

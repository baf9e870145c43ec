package connector

import (
	"sync"
)

// Provider holds the process's current connector. Installing a new
// connector closes the one it replaces.
type Provider struct {
	mu      sync.RWMutex
	current Connector
}

// NewProvider creates an empty provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Get returns the current connector, or nil.
func (p *Provider) Get() Connector {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Set installs c and closes the previous connector, if any.
func (p *Provider) Set(c Connector) error {
	p.mu.Lock()
	prev := p.current
	p.current = c
	p.mu.Unlock()

	if prev != nil && prev != c {
		return prev.Close()
	}
	return nil
}

// Close closes and removes the current connector.
func (p *Provider) Close() error {
	p.mu.Lock()
	prev := p.current
	p.current = nil
	p.mu.Unlock()

	if prev != nil {
		return prev.Close()
	}
	return nil
}

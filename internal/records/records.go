// Package records keeps the transfers handled by the backend service.
package records

import (
	"sort"
	"sync"
	"time"

	"github.com/borderlesspay/bpay/internal/backend"
)

// Book stores transfer records keyed by transaction id.
type Book struct {
	mu      sync.RWMutex
	entries map[string]backend.Transaction
	now     func() time.Time
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		entries: make(map[string]backend.Transaction),
		now:     time.Now,
	}
}

// Add stores a record, replacing any record with the same transaction id.
// A zero CreatedAt is set to the current time.
func (b *Book) Add(tx backend.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = b.now().UTC()
	}
	b.entries[tx.TransactionID] = tx
}

// Get returns the record for a transaction id.
func (b *Book) Get(transactionID string) (backend.Transaction, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tx, ok := b.entries[transactionID]
	return tx, ok
}

// ForUser returns the records of userID, newest first. An empty userID
// returns every record.
func (b *Book) ForUser(userID string) []backend.Transaction {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]backend.Transaction, 0, len(b.entries))
	for _, tx := range b.entries {
		if userID == "" || tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sortNewestFirst(out)
	return out
}

// All returns every record, newest first.
func (b *Book) All() []backend.Transaction {
	return b.ForUser("")
}

// Size returns the number of records.
func (b *Book) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries)
}

// Prune removes records older than maxAge and returns how many were removed.
func (b *Book) Prune(maxAge time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-maxAge)
	removed := 0
	for id, tx := range b.entries {
		if tx.CreatedAt.Before(cutoff) {
			delete(b.entries, id)
			removed++
		}
	}
	return removed
}

func sortNewestFirst(txs []backend.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].TransactionID > txs[j].TransactionID
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

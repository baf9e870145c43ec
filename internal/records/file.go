package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/borderlesspay/bpay/internal/backend"
	"github.com/borderlesspay/bpay/internal/fileutil"
)

// ErrCorruptRecords indicates the records file is malformed JSON.
var ErrCorruptRecords = errors.New("records file is corrupted")

// fileFormatVersion is written into every records file.
const fileFormatVersion = 1

type fileFormat struct {
	Version   int                   `json:"version"`
	Transfers []backend.Transaction `json:"transfers"`
}

// FileStorage persists a Book as a JSON file.
type FileStorage struct {
	path string

	// mu spans the snapshot and the rename, so a file on disk is never
	// replaced by an older snapshot.
	mu sync.Mutex
}

// NewFileStorage creates a new file-based record storage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Save writes the book atomically.
func (s *FileStorage) Save(b *Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileutil.WriteJSON(s.path, fileFormat{Version: fileFormatVersion, Transfers: b.All()}); err != nil {
		return fmt.Errorf("writing records file: %w", err)
	}
	return nil
}

// Load reads the book from disk. A missing file yields an empty book. A
// corrupt file is moved aside and an empty book is returned with
// ErrCorruptRecords.
func (s *FileStorage) Load() (*Book, error) {
	book := NewBook()

	// #nosec G304 -- path comes from the service configuration
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return book, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		corruptPath := fmt.Sprintf("%s.corrupt.%d", s.path, time.Now().UTC().UnixNano())
		if renameErr := os.Rename(s.path, corruptPath); renameErr != nil {
			return book, fmt.Errorf("%w: %w (also failed to move file: %w)", ErrCorruptRecords, err, renameErr)
		}
		return book, fmt.Errorf("%w: %w (moved to %s)", ErrCorruptRecords, err, corruptPath)
	}

	for _, tx := range f.Transfers {
		if tx.TransactionID != "" {
			book.Add(tx)
		}
	}
	return book, nil
}

// Path returns the records file path.
func (s *FileStorage) Path() string {
	return s.path
}

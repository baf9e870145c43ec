package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/borderlesspay/bpay/internal/connector"
	"github.com/borderlesspay/bpay/internal/fileutil"
	"github.com/borderlesspay/bpay/internal/sealbox"
)

const (
	// sessionFileExtension is the extension for session files.
	sessionFileExtension = ".session"

	// keyringUser names the sealing key entry.
	keyringUser = "resume-key"

	// keyringCheckTimeout bounds the keyring check so a hung keyring daemon
	// cannot stall startup.
	keyringCheckTimeout = 3 * time.Second
)

//nolint:gochecknoglobals // compiled once
var topicRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// record is the on-disk form of a session.
type record struct {
	Session      connector.Session `json:"session"`
	SealedResume []byte            `json:"sealed_resume,omitempty"`
	SavedAt      time.Time         `json:"saved_at"`
}

// FileStore implements Store with files and the OS keyring.
type FileStore struct {
	basePath  string
	keyring   Keyring
	available bool
	now       func() time.Time
	mu        sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewStore creates a store under basePath. If keyring is nil the OS keyring
// is used. The keyring is checked once to decide availability.
func NewStore(basePath string, keyring Keyring) *FileStore {
	if keyring == nil {
		keyring = NewOSKeyring()
	}

	s := &FileStore{
		basePath: basePath,
		keyring:  keyring,
		now:      time.Now,
	}
	s.available = s.keyringWorks()
	return s
}

// Available implements Store.
func (s *FileStore) Available() bool {
	return s.available
}

// Save implements Store.
func (s *FileStore) Save(sess connector.Session) error {
	if !topicRegex.MatchString(sess.Topic) {
		return ErrInvalidTopic
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return ErrKeyringUnavailable
	}

	rec := record{Session: sess, SavedAt: s.now().UTC()}
	rec.Session.ResumeKey = ""

	if sess.ResumeKey != "" {
		key, err := s.sealingKey(true)
		if err != nil {
			return err
		}
		sealed, err := sealbox.Seal([]byte(sess.ResumeKey), key)
		if err != nil {
			return fmt.Errorf("sealing resume key: %w", err)
		}
		rec.SealedResume = sealed
	}

	if err := fileutil.WriteJSON(s.sessionPath(sess.Topic), rec); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load() ([]connector.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return nil, ErrKeyringUnavailable
	}

	records, err := s.readAllLocked()
	if err != nil {
		return nil, err
	}

	key, keyErr := s.sealingKey(false)

	var out []connector.Session
	for _, rec := range records {
		sess := rec.Session
		if len(rec.SealedResume) > 0 {
			if keyErr != nil {
				_ = s.removeLocked(sess.Topic)
				continue
			}
			plain, openErr := sealbox.Open(rec.SealedResume, key)
			if openErr != nil {
				_ = s.removeLocked(sess.Topic)
				continue
			}
			sess.ResumeKey = string(plain)
		}
		out = append(out, sess)
	}
	return out, nil
}

// List implements Store.
func (s *FileStore) List() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return nil, ErrKeyringUnavailable
	}

	records, err := s.readAllLocked()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(records))
	for _, rec := range records {
		infos = append(infos, Info{
			Topic:     rec.Session.Topic,
			AccountID: rec.Session.AccountID(),
			Peer:      rec.Session.Peer.Name,
			Expiry:    rec.Session.Expiry,
			SavedAt:   rec.SavedAt,
		})
	}
	return infos, nil
}

// Delete implements Store.
func (s *FileStore) Delete(topic string) error {
	if !topicRegex.MatchString(topic) {
		return ErrInvalidTopic
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.sessionPath(topic)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrSessionNotFound
	}
	return s.removeLocked(topic)
}

// DeleteAll implements Store.
func (s *FileStore) DeleteAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, topic := range s.topicsLocked() {
		if s.removeLocked(topic) == nil {
			count++
		}
	}
	if s.available {
		_ = s.keyring.Delete(ServiceName, keyringUser)
	}
	return count
}

// readAllLocked returns unexpired records, removing expired and corrupted
// files along the way.
func (s *FileStore) readAllLocked() ([]record, error) {
	if _, err := os.Stat(s.basePath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	now := s.now()
	var records []record
	for _, topic := range s.topicsLocked() {
		var rec record
		if err := fileutil.ReadJSON(s.sessionPath(topic), &rec); err != nil {
			_ = s.removeLocked(topic)
			continue
		}
		if rec.Session.Topic != topic || rec.Session.Expired(now) {
			_ = s.removeLocked(topic)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *FileStore) topicsLocked() []string {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil
	}

	var topics []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionFileExtension) {
			continue
		}
		topic := strings.TrimSuffix(name, sessionFileExtension)
		if topicRegex.MatchString(topic) {
			topics = append(topics, topic)
		}
	}
	return topics
}

func (s *FileStore) removeLocked(topic string) error {
	if err := os.Remove(s.sessionPath(topic)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// sealingKey returns the keyring key, creating it when create is set.
func (s *FileStore) sealingKey(create bool) (string, error) {
	key, err := s.keyring.Get(ServiceName, keyringUser)
	if err == nil && key != "" {
		return key, nil
	}
	if !create {
		return "", errors.Join(ErrSessionCorrupted, err)
	}

	key, err = sealbox.NewKey()
	if err != nil {
		return "", err
	}
	if err := s.keyring.Set(ServiceName, keyringUser, key); err != nil {
		return "", fmt.Errorf("storing session key in keyring: %w", err)
	}
	return key, nil
}

func (s *FileStore) sessionPath(topic string) string {
	return filepath.Join(s.basePath, topic+sessionFileExtension)
}

func (s *FileStore) keyringWorks() bool {
	ch := make(chan bool, 1)
	go func() {
		ch <- checkKeyring(s.keyring)
	}()

	select {
	case ok := <-ch:
		return ok
	case <-time.After(keyringCheckTimeout):
		return false
	}
}

// Disabled is a Store that persists nothing.
type Disabled struct{}

var _ Store = Disabled{}

// Available implements Store.
func (Disabled) Available() bool { return false }

// Save implements Store.
func (Disabled) Save(connector.Session) error { return ErrKeyringUnavailable }

// Load implements Store.
func (Disabled) Load() ([]connector.Session, error) { return nil, nil }

// List implements Store.
func (Disabled) List() ([]Info, error) { return nil, nil }

// Delete implements Store.
func (Disabled) Delete(string) error { return ErrSessionNotFound }

// DeleteAll implements Store.
func (Disabled) DeleteAll() int { return 0 }

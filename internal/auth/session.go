package auth

import (
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TokenStore persists the raw bearer token
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Session holds the signed in user. The presence of a token is the only signed in signal.
type Session struct {
	store    TokenStore
	mu       sync.RWMutex
	token    string
	identity *Identity
}

// NewSession restores the session from store. A stored token that no longer decodes is
// discarded.
func NewSession(store TokenStore) (*Session, error) {
	s := &Session{store: store}

	token, err := store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stored token")
	}
	if token == "" {
		return s, nil
	}

	claims, err := Decode(token)
	if err != nil {
		log.Warn().Err(err).Msg("Discarding stored token")
		if err := store.Clear(); err != nil {
			return nil, errors.Wrap(err, "failed to clear stored token")
		}
		return s, nil
	}

	identity := claims.Identity()
	s.token = token
	s.identity = &identity
	return s, nil
}

// Login decodes and persists token
func (s *Session) Login(token string) (Identity, error) {
	claims, err := Decode(token)
	if err != nil {
		return Identity{}, err
	}
	if err := s.store.Save(token); err != nil {
		return Identity{}, errors.Wrap(err, "failed to persist token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	identity := claims.Identity()
	s.token = token
	s.identity = &identity
	return identity, nil
}

// Logout forgets the token
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.identity = nil
	return errors.Wrap(s.store.Clear(), "failed to clear stored token")
}

// Identity returns the signed in user, false when signed out
func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Token returns the raw bearer token, empty when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// FileTokenStore keeps the token in a file readable only by the owner
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store at path
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load reads the token, empty when the file does not exist
func (f *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token
func (f *FileTokenStore) Save(token string) error {
	return os.WriteFile(f.path, []byte(token), 0o600)
}

// Clear removes the file
func (f *FileTokenStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryTokenStore keeps the token in memory
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// Load returns the stored token
func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save stores the token
func (m *MemoryTokenStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear forgets the token
func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

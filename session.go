package orgvault

import (
	"sync"

	"github.com/orgvault/client-go/internal/crypto"
)

// Session holds all key material for the active login: the master key,
// the stretched wrapping key, the unwrapped identity keypair and one org
// key per organization. Everything lives in process memory only and is
// zeroed on logout. Sessions are constructed per client, never shared
// globally, so tests can build isolated sessions without leakage.
type Session struct {
	mu sync.RWMutex

	masterKey    []byte
	stretchedKey []byte
	keypair      *crypto.Keypair
	orgKeys      map[string][]byte

	userID string
	email  string
}

func newSession() *Session {
	return &Session{orgKeys: make(map[string][]byte)}
}

// Initialized reports whether the session holds an unwrapped identity.
// Every consumer must check this before assuming zero-knowledge behavior
// is available; when false, encryption no-ops and legacy (v1) content
// passes through untouched.
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keypair != nil
}

// UserID returns the logged-in user's id.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Email returns the logged-in user's email.
func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// HasOrgKey reports whether the org key for the given org is resolved.
func (s *Session) HasOrgKey(orgID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orgKeys[orgID]
	return ok
}

// orgKey returns the org key for the given org, if resolved. The caller
// gets a copy: destroy zeroes the stored slice in place, and the
// background migrator holds the key across network round trips, so
// handing out the stored slice would let a concurrent logout mutate key
// bytes mid-encryption.
func (s *Session) orgKey(orgID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.orgKeys[orgID]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(key))
	copy(out, key)
	return out, true
}

func (s *Session) setOrgKey(orgID string, key []byte) {
	s.mu.Lock()
	s.orgKeys[orgID] = key
	s.mu.Unlock()
}

func (s *Session) identity() *crypto.Keypair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keypair
}

// populate installs the key material after a successful login or
// registration. Single writer: called once per session, read many.
func (s *Session) populate(userID, email string, masterKey, stretchedKey []byte, kp *crypto.Keypair) {
	s.mu.Lock()
	s.userID = userID
	s.email = email
	s.masterKey = masterKey
	s.stretchedKey = stretchedKey
	s.keypair = kp
	s.mu.Unlock()
}

// destroy zeroes and drops all key material. The session is unusable
// afterwards; a new login builds a fresh one.
func (s *Session) destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	zero(s.masterKey)
	zero(s.stretchedKey)
	for _, key := range s.orgKeys {
		zero(key)
	}
	s.masterKey = nil
	s.stretchedKey = nil
	s.keypair = nil
	s.orgKeys = make(map[string][]byte)
	s.userID = ""
	s.email = ""
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

package oauth

import (
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const DefaultStateTTL = 10 * time.Minute

type stateEntry struct {
	verifier  string
	expiresAt time.Time
}

// StateStore holds one-shot OAuth state values and their PKCE verifiers
type StateStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]stateEntry
	now     func() time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{
		ttl:     ttl,
		entries: make(map[string]stateEntry),
		now:     time.Now,
	}
}

// Issue returns a fresh random state
func (s *StateStore) Issue() string {
	return s.IssueWithVerifier("")
}

// IssueWithVerifier returns a fresh state bound to a PKCE verifier
func (s *StateStore) IssueWithVerifier(verifier string) string {
	state := oauth2.GenerateVerifier()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[state] = stateEntry{verifier: verifier, expiresAt: now.Add(s.ttl)}
	return state
}

// Consume reports whether state was issued and is unexpired. A state can be
// consumed once.
func (s *StateStore) Consume(state string) bool {
	_, ok := s.ConsumeVerifier(state)
	return ok
}

// ConsumeVerifier is Consume returning the verifier bound at issue time
func (s *StateStore) ConsumeVerifier(state string) (string, bool) {
	if state == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return "", false
	}
	delete(s.entries, state)
	if s.now().After(e.expiresAt) {
		return "", false
	}
	return e.verifier, true
}

// Len returns the number of outstanding states
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

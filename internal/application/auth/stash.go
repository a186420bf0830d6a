package auth

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	domain "github.com/mohammadpnp/wiki-auth/internal/domain/auth"
)

const stashCapacity = 1024

// CredentialStash holds plaintext credentials between the authentication
// step and account materialization. Entries are write-once, read-once,
// delete-always: Take removes the entry, and every negotiation failure path
// calls Drop. Entries left behind by abandoned login attempts expire with
// the TTL.
type CredentialStash struct {
	mu    sync.Mutex
	store *expirable.LRU[string, domain.RemoteCredential]
}

func NewCredentialStash(ttl time.Duration) *CredentialStash {
	return &CredentialStash{
		store: expirable.NewLRU[string, domain.RemoteCredential](stashCapacity, nil, ttl),
	}
}

func (s *CredentialStash) Put(cred domain.RemoteCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Add(cred.Username, cred)
}

// Take returns and removes the stashed credential for a username.
func (s *CredentialStash) Take(username string) (domain.RemoteCredential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.store.Get(username)
	if ok {
		s.store.Remove(username)
	}
	return cred, ok
}

func (s *CredentialStash) Drop(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Remove(username)
}

package auth

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username is unknown so both paths
// take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("platepulse-unknown-user"), bcrypt.MinCost)

// CredentialStore verifies username/password pairs against bcrypt hashes.
type CredentialStore struct {
	mu     sync.RWMutex
	hashes map[string][]byte
	cost   int
}

// NewCredentialStore builds a store from username to secret. A secret that is
// already a bcrypt hash is kept as is; anything else is hashed with cost.
func NewCredentialStore(users map[string]string, cost int) (*CredentialStore, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	s := &CredentialStore{cost: cost}
	if err := s.Replace(users); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps the whole user table. The old table stays in place on error.
func (s *CredentialStore) Replace(users map[string]string) error {
	if len(users) == 0 {
		return ErrNoUsers
	}
	hashes := make(map[string][]byte, len(users))
	for name, secret := range users {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("empty username")
		}
		hash, err := hashSecret(secret, s.cost)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", name, err)
		}
		hashes[name] = hash
	}

	s.mu.Lock()
	s.hashes = hashes
	s.mu.Unlock()
	return nil
}

// Verify returns ErrInvalidCredentials unless the password matches.
func (s *CredentialStore) Verify(username, password string) error {
	s.mu.RLock()
	hash, ok := s.hashes[username]
	s.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Usernames lists the configured users, sorted.
func (s *CredentialStore) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.hashes))
	for name := range s.hashes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func hashSecret(secret string, cost int) ([]byte, error) {
	if _, err := bcrypt.Cost([]byte(secret)); err == nil {
		return []byte(secret), nil
	}
	return bcrypt.GenerateFromPassword([]byte(secret), cost)
}

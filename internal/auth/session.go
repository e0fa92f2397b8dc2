package auth

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Session is one logged-in browser.
type Session struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	DatasetKey string    `json:"-"`
}

// EvictFunc runs when a session ends for any reason.
type EvictFunc func(s Session)

// SessionStore keeps sessions in an LRU with sliding expiry.
type SessionStore struct {
	mu     sync.Mutex
	lru    *expirable.LRU[string, *Session]
	logger *slog.Logger
}

// NewSessionStore creates a store holding at most size sessions, each expiring
// after ttl without activity.
func NewSessionStore(size int, ttl time.Duration, onEvict EvictFunc, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionStore{logger: logger.With(slog.String("component", "session_store"))}
	s.lru = expirable.NewLRU[string, *Session](size, func(id string, sess *Session) {
		s.logger.Debug("session ended",
			slog.String("username", sess.Username),
			slog.Bool("had_dataset", sess.DatasetKey != ""))
		if onEvict != nil {
			onEvict(*sess)
		}
	}, ttl)
	return s
}

// Create starts a session for username.
func (s *SessionStore) Create(username string) Session {
	sess := &Session{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.lru.Add(sess.ID, sess)
	s.mu.Unlock()
	return *sess
}

// Get looks up a session and extends its expiry.
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lru.Get(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	s.lru.Add(id, sess)
	return *sess, nil
}

// AttachDataset records the dataset a session is viewing and returns the key
// it replaced, if any.
func (s *SessionStore) AttachDataset(id, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lru.Get(id)
	if !ok {
		return "", ErrSessionNotFound
	}
	previous := sess.DatasetKey
	sess.DatasetKey = key
	s.lru.Add(id, sess)
	return previous, nil
}

// Delete ends a session. Deleting an unknown session is a no-op.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Remove(id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Purge ends every session.
func (s *SessionStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
}

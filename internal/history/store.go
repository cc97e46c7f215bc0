package history

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// StorageKey is the well-known entry that holds the serialized history
const StorageKey = "chatHistory"

// DefaultMaxSessions is the retention cap applied when none is configured
const DefaultMaxSessions = 50

// ErrEmptySession is returned when saving a session without messages
var ErrEmptySession = errors.New("history: session has no messages")

// Store persists chat sessions, most recently saved first.
//
// Every mutation reads the whole collection, modifies it and writes it back.
// The mutex serialises writers inside one process only; two processes sharing
// a backend are last-write-wins.
type Store struct {
	backend     Backend
	maxSessions int
	log         *slog.Logger
	mu          sync.Mutex
}

// NewStore creates a store over backend keeping at most maxSessions entries
func NewStore(backend Backend, maxSessions int, log *slog.Logger) *Store {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		backend:     backend,
		maxSessions: maxSessions,
		log:         log,
	}
}

// List returns every stored session, most recent first. A missing or
// corrupted entry yields an empty list.
func (s *Store) List() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readUnlocked()
}

// Get returns the stored session with the given id
func (s *Store) Get(id string) (Session, bool) {
	for _, sess := range s.List() {
		if sess.ID == id {
			return sess, true
		}
	}
	return Session{}, false
}

// Save inserts sess at the front, replacing any stored session with the same
// id, and drops the oldest entries beyond the cap
func (s *Store) Save(sess Session) error {
	if len(sess.Messages) == 0 {
		return ErrEmptySession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.readUnlocked()
	updated := make([]Session, 0, len(existing)+1)
	updated = append(updated, sess.Clone())
	for _, other := range existing {
		if other.ID != sess.ID {
			updated = append(updated, other)
		}
	}
	if len(updated) > s.maxSessions {
		updated = updated[:s.maxSessions]
	}

	return s.writeUnlocked(updated)
}

// Delete removes every session with the given id. Unknown ids are a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.readUnlocked()
	updated := make([]Session, 0, len(existing))
	for _, sess := range existing {
		if sess.ID != id {
			updated = append(updated, sess)
		}
	}

	return s.writeUnlocked(updated)
}

// Clear empties the store
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(StorageKey); err != nil {
		s.log.Error("failed to clear chat history", "error", err)
		return &StorageError{Op: "remove", Key: StorageKey, Err: err}
	}
	return nil
}

// readUnlocked loads the collection (must be called with lock held)
func (s *Store) readUnlocked() []Session {
	raw, ok, err := s.backend.Get(StorageKey)
	if err != nil {
		s.log.Warn("failed to read chat history", "error", err)
		return []Session{}
	}
	if !ok || raw == "" {
		return []Session{}
	}

	var sessions []Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		s.log.Warn("chat history is malformed, treating it as empty", "error", err)
		return []Session{}
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions
}

// writeUnlocked replaces the collection (must be called with lock held)
func (s *Store) writeUnlocked(sessions []Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return &StorageError{Op: "encode", Key: StorageKey, Err: err}
	}
	if err := s.backend.Set(StorageKey, string(data)); err != nil {
		s.log.Error("failed to save chat history", "error", err)
		return &StorageError{Op: "write", Key: StorageKey, Err: err}
	}
	return nil
}

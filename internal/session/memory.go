package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and development.
// Sessions are kept as marshaled JSON so it exercises the same persisted
// layout as the Redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	locks    *lockTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		locks:    newLockTable(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Session, error) {
	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.load(userID)
}

func (s *MemoryStore) Update(ctx context.Context, userID string, fn Mutator) (Session, error) {
	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.load(userID)
	if err != nil {
		return Session{}, err
	}

	changed, err := fn(&sess)
	if err != nil {
		return Session{}, err
	}
	if changed {
		if err := s.save(userID, sess); err != nil {
			return Session{}, err
		}
	}
	return sess, nil
}

func (s *MemoryStore) load(userID string) (Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[userID]
	s.mu.RUnlock()

	if !ok {
		sess := NewSession()
		if err := s.save(userID, sess); err != nil {
			return Session{}, err
		}
		return sess, nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *MemoryStore) save(userID string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[userID] = data
	s.mu.Unlock()
	return nil
}

package session

import (
	"context"
	"sync"
)

// Mutator inspects and modifies a session in place. It returns whether the
// session changed; unchanged sessions are not written back. A non-nil error
// aborts the update without persisting anything.
type Mutator func(s *Session) (changed bool, err error)

// Store is the durable mapping from user id to session. Get creates and
// persists a default session for an unseen user. Update is an atomic
// read-modify-write: concurrent updates for the same user are serialized,
// updates for different users proceed independently.
type Store interface {
	Get(ctx context.Context, userID string) (Session, error)
	Update(ctx context.Context, userID string, fn Mutator) (Session, error)
}

// lockTable hands out one mutex per key so sessions of different users never
// contend on a shared lock.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

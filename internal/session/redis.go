package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orderbot/pkg/redis"
)

// RedisStore persists sessions as JSON under session:<user id>. A zero ttl
// keeps sessions forever; the per-user lock table serializes read-modify-write
// cycles for the same user.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
	locks *lockTable
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis: client,
		ttl:   ttl,
		locks: newLockTable(),
	}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Session, error) {
	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.load(ctx, userID)
}

func (s *RedisStore) Update(ctx context.Context, userID string, fn Mutator) (Session, error) {
	lock := s.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return Session{}, err
	}

	changed, err := fn(&sess)
	if err != nil {
		return Session{}, err
	}
	if changed {
		if err := s.save(ctx, userID, sess); err != nil {
			return Session{}, err
		}
	}
	return sess, nil
}

func (s *RedisStore) load(ctx context.Context, userID string) (Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(userID))
	if errors.Is(err, redis.ErrNotFound) {
		sess := NewSession()
		if err := s.save(ctx, userID, sess); err != nil {
			return Session{}, err
		}
		return sess, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) save(ctx context.Context, userID string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(userID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return "session:" + userID
}

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SIACAML/cooqu-order/internal/domain"
)

// RedisStore persists sessions as JSON values in Redis with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get loads and decodes the session for sid. A missing key yields a fresh
// zero session; a decode failure is surfaced, never silently zeroed.
func (s *RedisStore) Get(ctx context.Context, sid string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, key(sid)).Bytes()
	if err == redis.Nil {
		return &domain.Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save replaces the session value whole and refreshes the TTL.
func (s *RedisStore) Save(ctx context.Context, sid string, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, key(sid), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout clears the identity fields in a single whole-value replace.
func (s *RedisStore) Logout(ctx context.Context, sid string) error {
	sess, err := s.Get(ctx, sid)
	if err != nil {
		return err
	}
	sess.ClearIdentity()
	return s.Save(ctx, sid, sess)
}

// Ping reports whether the backing Redis is reachable. Used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"babygpt/internal/domain"
)

const (
	sessionKeyPrefix = "session:"
	defaultRedisTTL  = 24 * time.Hour
)

// redisStore keeps sessions in Redis with a sliding TTL, so abandoned
// conversations expire on their own.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisStore(client *redis.Client, ttl time.Duration) *redisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) key(conversationID string) string {
	return sessionKeyPrefix + conversationID
}

func (s *redisStore) Get(ctx context.Context, conversationID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(conversationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("session: redis decode: %w", err)
	}

	// Refresh TTL on read; a failed refresh is not worth failing the turn.
	_ = s.client.Expire(ctx, s.key(conversationID), s.ttl).Err()

	return &sess, nil
}

func (s *redisStore) Set(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.ConversationID == "" {
		return ErrInvalidConfig
	}
	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: redis encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ConversationID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// Package session provides the per-conversation state store. The store is an
// injected key-value abstraction scoped to the process lifetime; only the
// usecase Router holds a writable handle.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"babygpt/internal/domain"
)

var (
	ErrInvalidStoreType = errors.New("session: invalid store type")
	ErrInvalidConfig    = errors.New("session: invalid store configuration")
)

// Store is the conversation state store. Get returns (nil, nil) when no
// session exists for the conversation id; absence is not an error.
type Store interface {
	Get(ctx context.Context, conversationID string) (*domain.Session, error)
	Set(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, conversationID string) error
	Close() error
}

// StoreType selects the backing driver.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeRedis    StoreType = "redis"
	StoreTypeDynamoDB StoreType = "dynamodb"
)

type storeConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration
	dynamoAPI   dynamoAPI
	dynamoTable string
}

// StoreOption configures driver-specific settings passed to NewStore.
type StoreOption func(*storeConfig)

func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) { c.redisTTL = ttl }
}

func WithDynamoDB(api dynamoAPI, table string) StoreOption {
	return func(c *storeConfig) {
		c.dynamoAPI = api
		c.dynamoTable = table
	}
}

// NewStore creates a Store for the given driver type. Redis requires
// WithRedisClient; DynamoDB requires WithDynamoDB.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(cfg.redisClient, cfg.redisTTL), nil
	case StoreTypeDynamoDB:
		if cfg.dynamoAPI == nil || cfg.dynamoTable == "" {
			return nil, ErrInvalidConfig
		}
		return newDynamoStore(cfg.dynamoAPI, cfg.dynamoTable), nil
	default:
		return nil, ErrInvalidStoreType
	}
}

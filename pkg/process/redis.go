package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// RedisStore persists suspended runs in Redis. Suitable for pauses that
	// must survive process restarts; set a TTL when abandoned runs should
	// eventually expire
	RedisStore struct {
		client *redis.Client
		prefix string
		ttl    time.Duration
	}

	// RedisOption configures a RedisStore
	RedisOption func(*RedisStore)
)

// DefaultRedisPrefix namespaces suspended-run keys
const DefaultRedisPrefix = "paisley:run:"

// WithTTL sets an expiry on persisted runs. Zero means no expiry
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed suspended-run store
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	res := &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func (s *RedisStore) Save(
	ctx context.Context, id api.RunID, state *api.State,
) error {
	data, err := state.Snapshot()
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyFor(id), data, s.ttl).Err()
}

func (s *RedisStore) Load(
	ctx context.Context, id api.RunID,
) (*api.State, error) {
	data, err := s.client.Get(ctx, s.keyFor(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: run %s", api.ErrNotFound, id)
		}
		return nil, err
	}
	return api.RestoreState(data)
}

func (s *RedisStore) Delete(ctx context.Context, id api.RunID) error {
	return s.client.Del(ctx, s.keyFor(id)).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]api.RunID, error) {
	var ids []api.RunID
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(
			ctx, cursor, s.prefix+"*", 100,
		).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			ids = append(ids, api.RunID(strings.TrimPrefix(key, s.prefix)))
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

func (s *RedisStore) keyFor(id api.RunID) string {
	return s.prefix + string(id)
}

package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/stepflow/internal/config"
	"github.com/kode4food/stepflow/pkg/api"
)

// RedisStore keeps results as JSON strings under prefix:run:<id>, expiring
// them after the configured TTL
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the configured Redis server
func NewRedisStore(cfg config.ArchiveConfig) (*RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisStoreWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client. A zero TTL keeps results
// indefinitely
func NewRedisStoreWithClient(
	client *redis.Client, prefix string, ttl time.Duration,
) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) Save(ctx context.Context, res *api.WorkflowResult) error {
	data, err := encode(res)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(res.RunID), data, s.ttl).Err()
}

func (s *RedisStore) Load(
	ctx context.Context, id api.RunID,
) (*api.WorkflowResult, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return decode(id, data)
}

// Ping checks that the Redis server is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(id api.RunID) string {
	if s.prefix == "" {
		return "run:" + string(id)
	}
	return s.prefix + ":run:" + string(id)
}

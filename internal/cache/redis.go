// internal/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tamzrod/sps30-replicator/internal/config"
	"github.com/tamzrod/sps30-replicator/internal/publish"
)

// Store keeps the latest reading of every unit in a Redis hash.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(cfg config.RedisConfig) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return NewWithClient(rdb, cfg.KeyPrefix, time.Duration(cfg.TTLMs)*time.Millisecond), nil
}

// NewWithClient wraps an existing client. A zero ttl keeps keys forever.
func NewWithClient(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = config.DefaultKeyPrefix
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key returns the hash key of unit.
func (s *Store) Key(unit string) string {
	return s.prefix + ":" + unit
}

// PutReading replaces the unit's hash with r.
func (s *Store) PutReading(ctx context.Context, r publish.Reading) error {
	key := s.Key(r.Unit)

	fields := r.Fields()
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		if s.ttl > 0 {
			pipe.PExpire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	return nil
}

// Latest returns the cached fields of unit, or an empty map when none.
func (s *Store) Latest(ctx context.Context, unit string) (map[string]string, error) {
	fields, err := s.rdb.HGetAll(ctx, s.Key(unit)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", s.Key(unit), err)
	}
	return fields, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

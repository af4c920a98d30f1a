package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/sps30-replicator/internal/publish"
)

// setupTestRedis needs a real Redis instance on localhost.
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping test")
		return nil
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func TestKey(t *testing.T) {
	s := NewWithClient(nil, "", 0)
	assert.Equal(t, "sps30:lab", s.Key("lab"))

	s = NewWithClient(nil, "air", 0)
	assert.Equal(t, "air:lab", s.Key("lab"))
}

func TestPutReading_Latest(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	s := NewWithClient(client, "test", 0)

	r := publish.Reading{
		Unit:     "lab",
		At:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		MassPM25: 2.5,
		Status:   publish.SensorFlags{Fan: true},
	}
	require.NoError(t, s.PutReading(ctx, r))

	got, err := s.Latest(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, "2.5", got["mass_pm2_5"])
	assert.Equal(t, "true", got["status_fan"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["at"])

	ttl, err := client.TTL(ctx, "test:lab").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestPutReading_TTL(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	s := NewWithClient(client, "test", time.Minute)
	require.NoError(t, s.PutReading(ctx, publish.Reading{Unit: "lab"}))

	ttl, err := client.PTTL(ctx, "test:lab").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestLatest_Missing(t *testing.T) {
	client := setupTestRedis(t)

	got, err := NewWithClient(client, "test", 0).Latest(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

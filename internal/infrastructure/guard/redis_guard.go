package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the in-flight guard between console processes.
// Keys expire after ttl so a crashed holder cannot block a page forever.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisGuard creates a guard on an existing client
func NewRedisGuard(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisGuard {
	return &RedisGuard{
		client: client,
		prefix: "pagebot:inflight:",
		ttl:    ttl,
		logger: logger,
	}
}

// Connect parses a redis URL and pings the server
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Acquire takes key with SET NX PX
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	redisKey := g.prefix + key

	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire guard %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, g.client, []string{redisKey}, token).Err(); err != nil {
				g.logger.Warn().Err(err).Str("key", key).Msg("Failed to release guard, it will expire")
			}
		})
	}, true, nil
}

// Held reports whether key is taken by any process
func (g *RedisGuard) Held(ctx context.Context, key string) bool {
	n, err := g.client.Exists(ctx, g.prefix+key).Result()
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("Failed to check guard")
		return false
	}
	return n > 0
}

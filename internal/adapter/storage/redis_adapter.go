package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingMarker     = "pending"
	idempotencyKeyTTL = 24 * time.Hour
)

// completeScript stores a result only while the key still holds the pending marker,
// so a late writer cannot replace a result after the reservation expired and was
// claimed again.
var completeScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisAdapter keeps idempotency reservations and results for order submissions.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: idempotencyKeyTTL}
}

func (r *RedisAdapter) Reserve(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, key, pendingMarker, r.ttl).Result()
}

func (r *RedisAdapter) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(val) == pendingMarker {
		return nil, false, nil
	}
	return val, true, nil
}

func (r *RedisAdapter) Complete(ctx context.Context, key string, result []byte) error {
	return completeScript.Run(ctx, r.client, []string{key}, pendingMarker, result, r.ttl.Milliseconds()).Err()
}

func (r *RedisAdapter) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, r.client, []string{key}, pendingMarker).Err()
}

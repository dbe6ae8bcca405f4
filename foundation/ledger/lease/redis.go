package lease

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease key only when the stored value still
// matches the holder, so an expired lease reacquired by another process is
// never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements the Locker interface against the platform's shared
// redis coordination cache.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker constructs a locker backed by the specified redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
	}
}

// Acquire attempts an atomic SET NX PX for the lease key. It reports false
// without waiting when another process holds the lease.
func (rl *RedisLocker) Acquire(ctx context.Context, key string, holder string, ttl time.Duration) (bool, error) {
	ok, err := rl.client.SetNX(ctx, key, holder, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// Release removes the lease key when it is still held by the holder.
func (rl *RedisLocker) Release(ctx context.Context, key string, holder string) error {
	return releaseScript.Run(ctx, rl.client, []string{key}, holder).Err()
}

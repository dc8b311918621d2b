// Package lock provides a redis-backed mutual exclusion lease keyed by an
// arbitrary string. It serializes mutations that touch the same aggregate,
// such as all OTP operations for one user, across application replicas.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// ErrNotAcquired indicates the lease could not be obtained before the
// acquisition deadline elapsed.
var ErrNotAcquired = errors.New("lock: lease not acquired")

// Locker runs a function while holding an exclusive lease on a key.
type Locker interface {
	Do(ctx context.Context, key string, fn func(context.Context) error) error
}

// compare-and-delete so a slow holder cannot release a successor's lease.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker implements Locker on a single redis instance via SET NX with a
// TTL. The TTL bounds how long a crashed holder can block other replicas.
type RedisLocker struct {
	client  *redis.Client
	uuid    interface{ Generate() string }
	prefix  string
	ttl     time.Duration
	maxWait time.Duration
}

// Config controls lease behavior.
type Config struct {
	// TTL is the lease lifetime. Must exceed the longest critical section.
	TTL time.Duration
	// MaxWait bounds how long Do waits to acquire before giving up.
	MaxWait time.Duration
}

// NewRedisLocker creates a locker. The uuid generator supplies unique owner
// tokens so only the holder can release its own lease.
func NewRedisLocker(client *redis.Client, uuid interface{ Generate() string }, cfg Config) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 5 * time.Second
	}

	return &RedisLocker{
		client:  client,
		uuid:    uuid,
		prefix:  "lock:",
		ttl:     cfg.TTL,
		maxWait: cfg.MaxWait,
	}
}

// Do acquires the lease for key, runs fn, then releases the lease. The
// release is best effort: an expired lease is already gone and a lost
// connection leaves it to the TTL.
func (l *RedisLocker) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	fk := l.prefix + key
	owner := l.uuid.Generate()

	backoff := retry.WithMaxDuration(l.maxWait, retry.NewConstant(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, fk, owner, l.ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrNotAcquired)
		}
		return nil
	})
	if err != nil {
		return err
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		l.client.Eval(releaseCtx, releaseScript, []string{fk}, owner)
	}()

	return fn(ctx)
}

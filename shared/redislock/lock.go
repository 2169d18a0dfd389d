package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when releasing a lock whose token no longer matches
var ErrNotHeld = errors.New("lock not held")

// Config holds Redis connection configuration
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient builds a go-redis client and verifies the connection
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Locker hands out short lived exclusive leases keyed by name.
type Locker struct {
	client *redis.Client
	prefix string
}

// New creates a Locker storing keys under prefix
func New(client *redis.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = "lock:"
	}
	return &Locker{client: client, prefix: prefix}
}

// Lease is a held lock
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// TryAcquire takes the lock if nobody holds it. ok is false when it is held elsewhere.
func (l *Locker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{locker: l, key: key, token: token}, true, nil
}

// Release deletes the key only if this lease still owns it
func (le *Lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, le.locker.client, []string{le.key}, le.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Default RedisLocker timings.
const (
	DefaultLockTTL       = 5 * time.Second
	DefaultRetryInterval = 10 * time.Millisecond
	DefaultMaxWait       = 3 * time.Second
)

// releaseScript deletes the lock only if it still carries our token, so a
// holder whose lock already expired cannot release somebody else's.
// KEYS: [1]=lock key, ARGV: [1]=token
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLockerConfig configures a RedisLocker.
type RedisLockerConfig struct {
	// Prefix is prepended to every key, e.g. "singme:lock:".
	Prefix string
	// TTL bounds how long a crashed holder can block a key.
	TTL time.Duration
	// RetryInterval is the delay between acquisition attempts.
	RetryInterval time.Duration
	// MaxWait caps the total time spent acquiring when ctx has no earlier deadline.
	MaxWait time.Duration
}

// RedisLocker is a Locker backed by SET NX PX, shared across processes.
type RedisLocker struct {
	client *redis.Client
	config RedisLockerConfig
	logger *slog.Logger
}

// NewRedisLocker creates a RedisLocker. Zero config values take the defaults.
func NewRedisLocker(client *redis.Client, cfg RedisLockerConfig, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultLockTTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	return &RedisLocker{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Lock polls until the key is acquired, ctx is done, or MaxWait elapses.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.config.Prefix + key
	token := uuid.New().String()

	ctx, cancel := context.WithTimeout(ctx, l.config.MaxWait)
	defer cancel()

	ticker := time.NewTicker(l.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.config.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
		}
		if ok {
			return l.unlockFunc(fullKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlockFunc(fullKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(fullKey, token) })
	}
}

func (l *RedisLocker) release(fullKey, token string) {
	// The caller's context may already be cancelled; release regardless.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Int()
	if err != nil {
		l.logger.Warn("failed to release lock",
			slog.String("key", fullKey),
			slog.String("error", err.Error()))
		return
	}
	if n == 0 {
		l.logger.Warn("lock expired before release",
			slog.String("key", fullKey),
			slog.Duration("ttl", l.config.TTL))
	}
}

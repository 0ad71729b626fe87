package limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Counter shared between instances. Keys expire on their own
// after the window set on the first increment.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis counter namespacing keys under prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// NewRedisFromURL parses a redis:// URL and pings the server.
func NewRedisFromURL(ctx context.Context, url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("limiter: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.key(key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// The window starts on the first event.
	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return count, nil
}

func (r *Redis) Get(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, r.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// releaseRetries bounds how often Release retries after the watched key
// changed under it.
const releaseRetries = 3

// Release decrements under WATCH so a key that expired or was reset in the
// meantime is left alone rather than recreated without a TTL.
func (r *Redis) Release(ctx context.Context, key string) error {
	k := r.key(key)
	release := func(tx *redis.Tx) error {
		n, err := tx.Get(ctx, k).Int64()
		if errors.Is(err, redis.Nil) || (err == nil && n <= 0) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Decr(ctx, k)
			return nil
		})
		return err
	}

	var err error
	for range releaseRetries {
		err = r.client.Watch(ctx, release, k)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error { return r.client.Close() }

// Ping reports whether the backend is reachable.
func (r *Redis) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

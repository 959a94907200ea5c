package lock

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotAcquired = errors.New("lock_not_acquired")
	ErrInvalidKey  = errors.New("lock_key_empty")
	ErrInvalidTTL  = errors.New("lock_ttl_not_positive")
)

// Locker is a best-effort mutual exclusion primitive keyed by string.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

const retryInterval = 25 * time.Millisecond

// WithLock polls until key is acquired or ctx is done, runs fn, then releases.
func WithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(context.Context) error) error {
	token, err := acquire(ctx, l, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		_ = l.Release(context.WithoutCancel(ctx), key, token)
	}()
	return fn(ctx)
}

func acquire(ctx context.Context, l Locker, key string, ttl time.Duration) (string, error) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		token, ok, err := l.TryLock(ctx, key, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", errors.Join(ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

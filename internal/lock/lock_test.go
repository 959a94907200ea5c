package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "claim:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "claim:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "claim:1", "wrong-token"))
	_, ok, _ = l.TryLock(ctx, "claim:1", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "claim:1", token))
	_, ok, _ = l.TryLock(ctx, "claim:1", time.Minute)
	assert.True(t, ok)
}

func TestLocalLockerExpires(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.nowFn = func() time.Time { return now }

	_, ok, _ := l.TryLock(context.Background(), "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.TryLock(context.Background(), "k", time.Second)
	assert.True(t, ok)
}

func TestLocalLockerValidation(t *testing.T) {
	l := NewLocalLocker()
	_, _, err := l.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, _, err = l.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestWithLockSerializes(t *testing.T) {
	l := NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), l, "shared", time.Minute, func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestWithLockGivesUpWhenContextEnds(t *testing.T) {
	l := NewLocalLocker()
	_, ok, _ := l.TryLock(context.Background(), "busy", time.Minute)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	err := WithLock(ctx, l, "busy", time.Minute, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestNewLockerFallsBackToLocal(t *testing.T) {
	_, ok := NewLocker(nil).(*LocalLocker)
	assert.True(t, ok)
}

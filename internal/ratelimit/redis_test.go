//go:build integration

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txguard/pkg/testutil/containers"
)

func TestRedis_SlidingWindow(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	store := NewRedis(rc.Client)
	store.now = clock.now

	for i := 0; i < 3; i++ {
		res, err := store.Allow(ctx, "ip:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		clock.advance(10 * time.Second)
	}

	res, err := store.Allow(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter)

	clock.advance(31 * time.Second)
	res, err = store.Allow(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	ttl, err := rc.Client.PTTL(ctx, redisKeyPrefix+"ip:10.0.0.1").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestRedis_ConcurrentCallersNeverOvershoot(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Allow(ctx, "sub:burst", 10, time.Minute)
			if err != nil {
				t.Error(err)
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

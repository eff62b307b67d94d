package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, m.Allow(ctx, "login:1.2.3.4", 3, time.Minute), "attempt %d", i+1)
	}
	assert.False(t, m.Allow(ctx, "login:1.2.3.4", 3, time.Minute))
	assert.True(t, m.Allow(ctx, "login:5.6.7.8", 3, time.Minute))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, m.Allow(ctx, "login:1.2.3.4", 3, time.Minute))

	assert.True(t, m.Allow(ctx, "", 0, time.Minute))
}

func TestRedis(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	l := NewRedis(client, "ratelimit:")

	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow(ctx, "login:1.2.3.4", 2, time.Minute))
	}
	assert.False(t, l.Allow(ctx, "login:1.2.3.4", 2, time.Minute))
	assert.True(t, mr.Exists("ratelimit:login:1.2.3.4"))

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, l.Allow(ctx, "login:1.2.3.4", 2, time.Minute))

	// unreachable redis lets requests through
	mr.Close()
	assert.True(t, l.Allow(ctx, "login:1.2.3.4", 1, time.Minute))
}

package cooldown

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"cyberjungle/internal/config"
	"cyberjungle/internal/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardCountsDownOncePerSecond(t *testing.T) {
	store := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	guard := NewGuard(store, 0)
	ctx := context.Background()

	left, err := guard.Remaining(ctx, "videos", "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, left)

	require.NoError(t, guard.Start(ctx, "videos", "10.0.0.1"))
	left, _ = guard.Remaining(ctx, "videos", "10.0.0.1")
	assert.Equal(t, 60, left)

	now = now.Add(500 * time.Millisecond)
	left, _ = guard.Remaining(ctx, "videos", "10.0.0.1")
	assert.Equal(t, 60, left)

	now = now.Add(500 * time.Millisecond)
	left, _ = guard.Remaining(ctx, "videos", "10.0.0.1")
	assert.Equal(t, 59, left)

	other, _ := guard.Remaining(ctx, "animations", "10.0.0.1")
	assert.Zero(t, other)
	other, _ = guard.Remaining(ctx, "videos", "10.0.0.2")
	assert.Zero(t, other)

	now = now.Add(59 * time.Second)
	left, _ = guard.Remaining(ctx, "videos", "10.0.0.1")
	assert.Zero(t, left)
}

func TestGuardClear(t *testing.T) {
	guard := NewGuard(NewMemoryStore(), 5*time.Second)
	ctx := context.Background()
	require.NoError(t, guard.Start(ctx, "animations", "c"))
	left, _ := guard.Remaining(ctx, "animations", "c")
	assert.Equal(t, 5, left)
	require.NoError(t, guard.Clear(ctx, "animations", "c"))
	left, _ = guard.Remaining(ctx, "animations", "c")
	assert.Zero(t, left)
}

func TestGuardWithRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := redis.NewRedisClient(&config.Config{Redis: config.RedisConfig{Host: host, Port: port}})
	require.NoError(t, err)
	defer client.Close()

	guard := NewGuard(client, 3*time.Second)
	ctx := context.Background()
	feature := "videos-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer guard.Clear(ctx, feature, "c")

	require.NoError(t, guard.Start(ctx, feature, "c"))
	left, err := guard.Remaining(ctx, feature, "c")
	require.NoError(t, err)
	assert.InDelta(t, 3, left, 1)
}

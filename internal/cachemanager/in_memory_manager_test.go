package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryCacheManager(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCacheManager[string, int]("test", time.Minute, time.Minute)

	_, ok := c.Get(ctx, "a")
	require.False(t, ok)

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, time.Minute)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 2, c.Len())

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	require.False(t, ok)

	c.Flush(ctx)
	require.Equal(t, 0, c.Len())
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCacheManager[string, string]("test", time.Minute, time.Minute)
	c.Set(ctx, "k", "v", time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

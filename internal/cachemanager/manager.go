// Package cachemanager provides a typed facade over an in-process cache.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager stores values by key with per-entry expiry.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K)
	Flush(ctx context.Context)
	Len() int
}

package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Memoize wraps fn so results are served from c when present. keyFn maps the
// call arguments to a cache key; ttl <= 0 selects the cache default.
//
// Errors are returned to the caller and never cached. Concurrent callers of
// the same uncached key each run fn; use MemoizeShared to collapse them.
func Memoize[A any, R any](c *Cache, fn func(context.Context, A) (R, error), keyFn func(A) string, ttl time.Duration) func(context.Context, A) (R, error) {
	return func(ctx context.Context, arg A) (R, error) {
		key := keyFn(arg)
		if v, ok := c.Get(key); ok {
			if r, ok := v.(R); ok {
				return r, nil
			}
		}

		r, err := fn(ctx, arg)
		if err != nil {
			return r, err
		}
		c.Set(key, r, ttl)
		return r, nil
	}
}

// MemoizeShared is Memoize with concurrent callers of one uncached key
// sharing a single call to fn.
func MemoizeShared[A any, R any](c *Cache, fn func(context.Context, A) (R, error), keyFn func(A) string, ttl time.Duration) func(context.Context, A) (R, error) {
	var group singleflight.Group

	return func(ctx context.Context, arg A) (R, error) {
		key := keyFn(arg)
		if v, ok := c.Get(key); ok {
			if r, ok := v.(R); ok {
				return r, nil
			}
		}

		v, err, _ := group.Do(key, func() (interface{}, error) {
			r, err := fn(ctx, arg)
			if err != nil {
				return nil, err
			}
			c.Set(key, r, ttl)
			return r, nil
		})
		if err != nil {
			var zero R
			return zero, err
		}
		return v.(R), nil
	}
}

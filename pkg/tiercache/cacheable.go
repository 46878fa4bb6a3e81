package tiercache

import (
	"context"
	"time"
)

// Cacheable wraps produce with a read-through cache: the returned function
// consults the cache under the key derived from its input and only invokes
// produce on a miss, storing the result with the given TTL. Producer errors
// pass through uncached.
//
// Example:
//
//	fetchProfile := tiercache.Cacheable(cache,
//		func(id string) string { return "profile_" + id },
//		loadProfileFromAPI,
//		10*time.Minute,
//	)
func Cacheable[In, Out any](
	c *Cache,
	keyFn func(In) string,
	produce func(context.Context, In) (Out, error),
	ttl time.Duration,
	opts ...CallOption,
) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		key := keyFn(in)

		if v, ok, err := Get[Out](ctx, c, key, opts...); err == nil && ok {
			return v, nil
		}

		out, err := produce(ctx, in)
		if err != nil {
			return out, err
		}

		_ = Set(ctx, c, key, out, append(opts, WithTTL(ttl))...)
		return out, nil
	}
}

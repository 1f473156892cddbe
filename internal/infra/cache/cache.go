// Package cache holds the read-through query cache that sits between the
// entity store and the API. Entries are keyed by query identifier and are
// dropped explicitly by the mutation that made them stale.
package cache

import (
	"context"

	"github.com/bytedance/sonic"
)

const (
	KeyArtifacts = "artifacts"
	KeyNotes     = "notes"
)

func ArtifactKey(id string) string { return "artifact:" + id }

// QueryCache stores serialized query results. Every Invalidate of a key bumps
// its generation so a load that started before the invalidation cannot write
// its result back.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Invalidate(ctx context.Context, keys ...string) error
	Generation(ctx context.Context, key string) (uint64, error)
	// SetIfCurrent writes val only while key is still at generation gen.
	SetIfCurrent(ctx context.Context, key string, val []byte, gen uint64) (bool, error)
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. A broken or unreachable cache degrades to calling load. The result
// is discarded instead of cached when key was invalidated while load ran.
func GetOrLoad[T any](ctx context.Context, c QueryCache, key string, load func(context.Context) (T, error)) (T, error) {
	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		var v T
		if err := sonic.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	gen, genErr := c.Generation(ctx, key)
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if genErr != nil {
		return v, nil
	}
	if raw, err := sonic.Marshal(v); err == nil {
		_, _ = c.SetIfCurrent(ctx, key, raw, gen)
	}
	return v, nil
}

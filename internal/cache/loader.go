package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader fronts an expensive fetch with a cache and collapses concurrent
// misses for the same key into one call.
//
// Invalidate bumps a generation counter so a fetch that was already in flight
// when a write landed does not repopulate the cache with pre-write data.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group

	mu  sync.Mutex
	gen uint64
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls fetch to produce it.
func (l *Loader[T]) Get(ctx context.Context, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()

	v, err, _ := l.group.Do(key, func() (any, error) {
		data, err := fetch(ctx)
		if err != nil {
			return data, err
		}
		l.mu.Lock()
		if l.gen == gen {
			l.cache.Set(key, data)
		}
		l.mu.Unlock()
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops key and fences off any fetch started before this call.
func (l *Loader[T]) Invalidate(key string) {
	l.mu.Lock()
	l.gen++
	l.cache.Delete(key)
	l.group.Forget(key)
	l.mu.Unlock()
}

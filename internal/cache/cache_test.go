package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string](4, 10*time.Second)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	if v, ok := c.Get("a"); !ok || v != "x" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}

	now = now.Add(10 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to expire at TTL")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed, size=%d", c.Size())
	}
}

func TestTTLCacheEviction(t *testing.T) {
	c := NewTTLCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("recently used entry should survive")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("purge left %d entries", c.Size())
	}
}

func TestTTLCacheDisabled(t *testing.T) {
	c := NewTTLCache[int](2, 0)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("zero TTL must not cache")
	}
}

func TestLoaderCachesAndInvalidates(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](1, time.Minute))
	var calls int32
	fetch := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}
	ctx := context.Background()

	v1, _ := l.Get(ctx, "k", fetch)
	v2, _ := l.Get(ctx, "k", fetch)
	if v1 != 1 || v2 != 1 {
		t.Fatalf("expected cached value 1, got %d and %d", v1, v2)
	}

	l.Invalidate("k")
	v3, _ := l.Get(ctx, "k", fetch)
	if v3 != 2 {
		t.Fatalf("expected refetch after invalidate, got %d", v3)
	}
}

func TestLoaderDoesNotCacheErrors(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](1, time.Minute))
	boom := errors.New("boom")
	if _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected 7, got %d %v", v, err)
	}
}

func TestLoaderInvalidateDuringFetch(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](1, time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Get(context.Background(), "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()

	<-started
	l.Invalidate("k")
	close(release)
	wg.Wait()

	v, _ := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 2, nil })
	if v != 2 {
		t.Fatalf("stale in-flight result was cached: got %d", v)
	}
}

func TestLoaderCollapsesConcurrentMisses(t *testing.T) {
	l := NewLoader[int](NewTTLCache[int](1, time.Minute))
	var calls int32
	gate := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return 5, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Get(context.Background(), "k", fetch)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single fetch, got %d", n)
	}
}

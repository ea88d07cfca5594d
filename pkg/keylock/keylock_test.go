package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_SameKeyNeverOverlaps(t *testing.T) {
	m := New()
	ctx := context.Background()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Lock(ctx, "game:1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, m.Len(), "entries should be released once idle")
}

func TestLock_DistinctKeysDoNotBlock(t *testing.T) {
	m := New()
	ctx := context.Background()

	release, err := m.Lock(ctx, "game:1")
	require.NoError(t, err)
	defer release()

	done := make(chan struct{})
	go func() {
		r, err := m.Lock(ctx, "game:2")
		if err == nil {
			r()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestLock_FIFOOrder(t *testing.T) {
	m := New()
	ctx := context.Background()

	release, err := m.Lock(ctx, "review:1")
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := m.Lock(ctx, "review:1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			r()
		}(i)
		// Let each waiter park before the next one arrives.
		time.Sleep(10 * time.Millisecond)
	}

	release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLock_ContextCancelledWhileWaiting(t *testing.T) {
	m := New()

	release, err := m.Lock(context.Background(), "user:1")
	require.NoError(t, err)
	defer release()

	before := testutil.ToFloat64(Timeouts.WithLabelValues("user"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Lock(ctx, "user:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, before+1, testutil.ToFloat64(Timeouts.WithLabelValues("user")))
	assert.Equal(t, 1, m.Len(), "abandoned waiter must drop its reference")
}

func TestLock_DefaultTimeout(t *testing.T) {
	m := New(WithTimeout(20 * time.Millisecond))

	release, err := m.Lock(context.Background(), "game:7")
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = m.Lock(context.Background(), "game:7")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRelease_Idempotent(t *testing.T) {
	m := New()
	release, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)

	release()
	release()

	r2, ok := m.TryLock("k")
	require.True(t, ok)
	r2()
	assert.Equal(t, 0, m.Len())
}

func TestTryLock_HeldKey(t *testing.T) {
	m := New()
	release, ok := m.TryLock("k")
	require.True(t, ok)
	defer release()

	_, ok = m.TryLock("k")
	assert.False(t, ok)
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	m := New()
	boom := errors.New("boom")

	err := m.WithLock(context.Background(), "game:1", func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := m.TryLock("game:1")
	assert.True(t, ok, "key must be free after fn returned an error")
}

func TestWithLock_ReleasesOnPanic(t *testing.T) {
	m := New()

	func() {
		defer func() { _ = recover() }()
		_ = m.WithLock(context.Background(), "game:1", func(context.Context) error {
			panic("boom")
		})
	}()

	_, ok := m.TryLock("game:1")
	assert.True(t, ok, "key must be free after fn panicked")
}

func TestLockMany_OverlappingSetsDoNotDeadlock(t *testing.T) {
	m := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r, err := m.LockMany(ctx, "game:1", "review:1", "user:1")
			if assert.NoError(t, err) {
				r()
			}
		}()
		go func() {
			defer wg.Done()
			r, err := m.LockMany(ctx, "user:1", "review:1", "game:1", "game:1")
			if assert.NoError(t, err) {
				r()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, m.Len())
}

func TestLockMany_ReleasesPartialOnTimeout(t *testing.T) {
	m := New()
	held, err := m.Lock(context.Background(), "b")
	require.NoError(t, err)
	defer held()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.LockMany(ctx, "a", "b")
	require.ErrorIs(t, err, ErrTimeout)

	r, ok := m.TryLock("a")
	require.True(t, ok, "key a must be released after LockMany failed on b")
	r()
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, canonical([]string{"c", "a", "b", "a"}))
	assert.Empty(t, canonical(nil))
}

func TestScopeOf(t *testing.T) {
	assert.Equal(t, "game", scopeOf("game:123"))
	assert.Equal(t, "catalog", scopeOf("catalog:access-token"))
	assert.Equal(t, "other", scopeOf("plain"))
}

func waitSamples(t *testing.T, scope string) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, WaitDuration.WithLabelValues(scope).(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_WaitObservedAndKeysReleased(t *testing.T) {
	m := New()
	ctx := context.Background()
	samples := waitSamples(t, "draft")
	held := testutil.ToFloat64(HeldKeys)

	release, err := m.Lock(ctx, "draft:1")
	require.NoError(t, err)
	assert.Equal(t, held+1, testutil.ToFloat64(HeldKeys))

	acquired := make(chan struct{})
	go func() {
		r, err := m.Lock(ctx, "draft:1")
		if assert.NoError(t, err) {
			r()
		}
		close(acquired)
	}()
	time.Sleep(10 * time.Millisecond)
	release()
	<-acquired

	assert.Equal(t, samples+2, waitSamples(t, "draft"))
	assert.Equal(t, held, testutil.ToFloat64(HeldKeys))
}

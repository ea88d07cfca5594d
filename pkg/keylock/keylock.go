// Package keylock provides a process-local mutual exclusion primitive keyed by
// arbitrary strings. Holders of distinct keys never block each other; waiters on
// the same key are admitted in arrival order.
package keylock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrTimeout is returned when a key could not be acquired before the context or
// the configured default timeout expired.
var ErrTimeout = errors.New("keylock: acquire timed out")

// Release unlocks a key. Calling it more than once is a no-op.
type Release func()

type entry struct {
	// sem has capacity 1: a successful send means the key is held. Blocked
	// senders are parked by the runtime in FIFO order, and a receive hands
	// the slot directly to the oldest one.
	sem  chan struct{}
	refs int
}

// Mutex is a keyed mutex. The zero value is not usable; call New.
type Mutex struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
}

// Option configures a Mutex.
type Option func(*Mutex)

// WithTimeout bounds every acquisition that does not already carry an earlier
// context deadline. Zero disables the default bound.
func WithTimeout(d time.Duration) Option {
	return func(m *Mutex) {
		m.timeout = d
	}
}

// New creates an empty keyed mutex.
func New(opts ...Option) *Mutex {
	m := &Mutex{entries: make(map[string]*entry)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lock blocks until key is held by the caller or ctx ends. The returned
// Release must be called on every exit path, normally via defer.
func (m *Mutex) Lock(ctx context.Context, key string) (Release, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	e := m.ref(key)
	start := time.Now()

	select {
	case e.sem <- struct{}{}:
	default:
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			m.unref(key, e)
			Timeouts.WithLabelValues(scopeOf(key)).Inc()
			return nil, fmt.Errorf("%w: key %q: %v", ErrTimeout, key, ctx.Err())
		}
	}
	WaitDuration.WithLabelValues(scopeOf(key)).Observe(time.Since(start).Seconds())

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.unref(key, e)
		})
	}, nil
}

// TryLock acquires key only if it is free right now.
func (m *Mutex) TryLock(key string) (Release, bool) {
	e := m.ref(key)
	select {
	case e.sem <- struct{}{}:
	default:
		m.unref(key, e)
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.unref(key, e)
		})
	}, true
}

// LockMany acquires every key in a canonical (sorted, de-duplicated) order so
// that two callers locking overlapping sets cannot deadlock. On failure any
// keys already taken are released before returning.
func (m *Mutex) LockMany(ctx context.Context, keys ...string) (Release, error) {
	ordered := canonical(keys)
	releases := make([]Release, 0, len(ordered))

	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range ordered {
		rel, err := m.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, rel)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}

// WithLock runs fn while holding key. The key is released when fn returns or
// panics.
func (m *Mutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	release, err := m.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// WithLocks runs fn while holding every key in keys.
func (m *Mutex) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	release, err := m.LockMany(ctx, keys...)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}

// Len reports how many keys are currently held or waited on.
func (m *Mutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Mutex) ref(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
		HeldKeys.Inc()
	}
	e.refs++
	return e
}

func (m *Mutex) unref(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
		HeldKeys.Dec()
	}
}

func canonical(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

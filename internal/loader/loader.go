// Package loader implements the request-scoped batch-coalescing cache
// that lets a graph traversal issue per-key lookups while the underlying
// store sees one batched fetch per flush. Results are memoized per key
// for the lifetime of the request.
package loader

import (
	"context"
	"fmt"
	"sync"
)

// BatchFunc resolves a deduplicated key set to values in the same order
// as the keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// BatchMapFunc resolves a deduplicated key set to a key-to-value map.
// Keys absent from the map resolve to the zero value of V rather than an
// error.
type BatchMapFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Hooks receives per-loader cache and flush events. Implementations must
// tolerate being called from whichever goroutine drives the request.
type Hooks interface {
	CacheHit(ctx context.Context, loaderName string)
	CacheMiss(ctx context.Context, loaderName string)
	FlushBatch(ctx context.Context, loaderName string, queued, distinct int)
	FlushError(ctx context.Context, loaderName string)
}

type pendingEntry[K comparable, V any] struct {
	key   K
	thunk *Thunk[V]
}

// Loader is one batch-and-memoize cache instance. It is owned by exactly
// one request and identified within the request scope by its kind name
// plus configuration fingerprint.
type Loader[K comparable, V any] struct {
	name   string
	batch  BatchFunc[K, V]
	mapped BatchMapFunc[K, V]
	hooks  Hooks

	mu      sync.Mutex
	pending []pendingEntry[K, V]
	cache   map[K]*Thunk[V]
}

// Option configures a loader at construction.
type Option[K comparable, V any] func(*Loader[K, V])

// WithHooks attaches metric hooks to a loader.
func WithHooks[K comparable, V any](hooks Hooks) Option[K, V] {
	return func(l *Loader[K, V]) {
		l.hooks = hooks
	}
}

// New creates a loader backed by a positional batch function.
func New[K comparable, V any](name string, batch BatchFunc[K, V], opts ...Option[K, V]) *Loader[K, V] {
	l := &Loader[K, V]{
		name:  name,
		batch: batch,
		cache: make(map[K]*Thunk[V]),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewMapped creates a loader backed by a map-returning batch function.
func NewMapped[K comparable, V any](name string, batch BatchMapFunc[K, V], opts ...Option[K, V]) *Loader[K, V] {
	l := &Loader[K, V]{
		name:   name,
		mapped: batch,
		cache:  make(map[K]*Thunk[V]),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the loader kind name.
func (l *Loader[K, V]) Name() string {
	return l.name
}

// Load enqueues a key for the next flush and returns its placeholder.
// A key already cached returns the existing placeholder without queueing
// anything; Load never fetches synchronously.
func (l *Loader[K, V]) Load(ctx context.Context, key K) *Thunk[V] {
	l.mu.Lock()
	if thunk, ok := l.cache[key]; ok {
		l.mu.Unlock()
		if l.hooks != nil {
			l.hooks.CacheHit(ctx, l.name)
		}
		return thunk
	}

	thunk := newThunk[V](l)
	l.cache[key] = thunk
	l.pending = append(l.pending, pendingEntry[K, V]{key: key, thunk: thunk})
	l.mu.Unlock()

	if l.hooks != nil {
		l.hooks.CacheMiss(ctx, l.name)
	}
	return thunk
}

// LoadMany enqueues several keys, returning placeholders in key order.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) []*Thunk[V] {
	thunks := make([]*Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.Load(ctx, key)
	}
	return thunks
}

// Prime seeds the cache with an already-known value, avoiding a redundant
// batch fetch. An existing resolved entry is kept unless force is set; a
// pending queued entry for the key is resolved immediately either way.
func (l *Loader[K, V]) Prime(key K, value V, force bool) {
	l.PrimeMany(map[K]V{key: value}, force)
}

// PrimeMany primes several keys at once.
func (l *Loader[K, V]) PrimeMany(values map[K]V, force bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, value := range values {
		existing, ok := l.cache[key]
		if !ok {
			l.cache[key] = resolvedThunk(value)
			continue
		}
		if _, _, done := existing.Peek(); !done {
			existing.resolve(value)
		} else if force {
			l.cache[key] = resolvedThunk(value)
		}
	}
}

// Flush dequeues all pending keys in FIFO order, deduplicates them,
// invokes the batch function once, and resolves every queued placeholder
// exactly once — with its matched value, the zero-value missing sentinel,
// or the batch error. Flushing an empty queue is a no-op and never calls
// the batch function; in particular, if every queued key was primed
// before the flush, no fetch happens at all.
func (l *Loader[K, V]) Flush(ctx context.Context) error {
	l.mu.Lock()
	queued := l.pending
	l.pending = nil
	l.mu.Unlock()

	entries := queued[:0:0]
	for _, entry := range queued {
		if _, _, done := entry.thunk.Peek(); !done {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	keys := dedupeKeys(entries)
	if l.hooks != nil {
		l.hooks.FlushBatch(ctx, l.name, len(queued), len(keys))
	}

	byKey, err := l.fetch(ctx, keys)
	if err != nil {
		if l.hooks != nil {
			l.hooks.FlushError(ctx, l.name)
		}
		flushErr := fmt.Errorf("loader %s: %w", l.name, err)
		for _, entry := range entries {
			entry.thunk.reject(flushErr)
		}
		return nil
	}

	for _, entry := range entries {
		// Missing keys resolve to the zero value, not an error.
		entry.thunk.resolve(byKey[entry.key])
	}
	return nil
}

func (l *Loader[K, V]) fetch(ctx context.Context, keys []K) (map[K]V, error) {
	if l.mapped != nil {
		return l.mapped(ctx, keys)
	}

	values, err := l.batch(ctx, keys)
	if err != nil {
		return nil, err
	}
	if len(values) != len(keys) {
		return nil, fmt.Errorf("%w: %d keys, %d results", ErrBatchSizeMismatch, len(keys), len(values))
	}
	byKey := make(map[K]V, len(keys))
	for i, key := range keys {
		byKey[key] = values[i]
	}
	return byKey, nil
}

func dedupeKeys[K comparable, V any](entries []pendingEntry[K, V]) []K {
	seen := make(map[K]struct{}, len(entries))
	keys := make([]K, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.key]; ok {
			continue
		}
		seen[entry.key] = struct{}{}
		keys = append(keys, entry.key)
	}
	return keys
}

package loader

import (
	"context"
	"sync"
)

// flusher resolves pending thunks when the execution engine reaches a
// suspension point.
type flusher interface {
	Flush(ctx context.Context) error
}

// Thunk is a write-once placeholder for a value produced by a future
// batch fetch. It transitions exactly once from pending to either a value
// or an error, never both and never back.
//
// Reading a pending thunk is only valid through Value, which flushes the
// owning loader first. That call is the engine's designated suspension
// point: graphql-go resolvers return the thunk as a closure, and the
// engine invokes the closure after the whole sibling level has queued its
// loads.
type Thunk[V any] struct {
	mu    sync.Mutex
	done  bool
	value V
	err   error
	owner flusher
}

func newThunk[V any](owner flusher) *Thunk[V] {
	return &Thunk[V]{owner: owner}
}

func resolvedThunk[V any](value V) *Thunk[V] {
	return &Thunk[V]{done: true, value: value}
}

func (t *Thunk[V]) resolve(value V) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		panic(misuse("thunk resolved twice"))
	}
	t.done = true
	t.value = value
}

func (t *Thunk[V]) reject(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		panic(misuse("thunk resolved twice"))
	}
	t.done = true
	t.err = err
}

// Peek observes the thunk without triggering a flush. ok is false while
// the thunk is still pending.
func (t *Thunk[V]) Peek() (value V, err error, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err, t.done
}

// Value returns the resolved value, flushing the owning loader first if
// the thunk is still pending.
func (t *Thunk[V]) Value(ctx context.Context) (V, error) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if !done {
		if t.owner == nil {
			panic(misuse("pending thunk has no owning loader"))
		}
		if err := t.owner.Flush(ctx); err != nil {
			var zero V
			return zero, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		panic(misuse("thunk still pending after flush"))
	}
	return t.value, t.err
}

package loader

import (
	"context"
	"sync"
)

type registryKey struct {
	kind        string
	fingerprint string
}

// Registry is the request-scoped loader cache. Two resolver call sites
// asking for the same (kind, fingerprint) within one request share one
// loader instance; different fingerprints never share. Entries keep their
// insertion order.
type Registry struct {
	mu      sync.Mutex
	entries map[registryKey]any
	order   []registryKey
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[registryKey]any)}
}

func (r *Registry) getOrCreate(kind, fingerprint string, build func() any) any {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{kind: kind, fingerprint: fingerprint}
	if existing, ok := r.entries[key]; ok {
		return existing
	}
	created := build()
	r.entries[key] = created
	r.order = append(r.order, key)
	return created
}

// Len returns the number of distinct loader instances in the registry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Kinds returns the loader kind names in insertion order.
func (r *Registry) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.order))
	for i, key := range r.order {
		kinds[i] = key.kind
	}
	return kinds
}

type scopeContextKey struct{}

// NewScope attaches a fresh, empty loader registry to the context. The
// registry lives exactly as long as the request context; loaders inside
// it must never be shared across requests.
func NewScope(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeContextKey{}, NewRegistry())
}

// ScopeFrom retrieves the request's registry, reporting false when the
// context carries none.
func ScopeFrom(ctx context.Context) (*Registry, bool) {
	if ctx == nil {
		return nil, false
	}
	registry, ok := ctx.Value(scopeContextKey{}).(*Registry)
	return registry, ok
}

func mustScope(ctx context.Context) *Registry {
	registry, ok := ScopeFrom(ctx)
	if !ok {
		panic(misuse("no loader scope in context; wrap the request with loader.NewScope"))
	}
	return registry
}

// Acquire returns the request's loader for (kind, fingerprint), building
// it on first use. Calling Acquire outside a loader scope is a misuse
// panic. The build function runs at most once per (kind, fingerprint)
// per request.
func Acquire[K comparable, V any](ctx context.Context, kind, fingerprint string, build func() *Loader[K, V]) *Loader[K, V] {
	registry := mustScope(ctx)
	instance := registry.getOrCreate(kind, fingerprint, func() any { return build() })
	return instance.(*Loader[K, V])
}

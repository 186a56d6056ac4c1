package relation

import (
	"context"
	"fmt"

	"graphloader/internal/loader"
	"graphloader/internal/pagination"
	"graphloader/internal/predicate"
	"graphloader/internal/sqlstore"
)

// Options carries the per-request configuration of a relation load.
// Page, Sort, and Filter contribute to the loader fingerprint, so two
// resolver call sites with differing options never share a cache bucket.
type Options struct {
	Page   *pagination.PageInput
	Sort   pagination.SortInput
	Filter predicate.Node
	Limits pagination.Limits
	Hooks  loader.Hooks
}

// Loader is the kind-dispatched view of a relation loader. Resolve
// yields a row map for to-one kinds and a *pagination.Page of rows for
// list kinds.
type Loader interface {
	Resolve(ctx context.Context, parentKey any) func() (any, error)
}

// Dispatch obtains the loader variant matching the descriptor's shape
// from the request scope, creating it on first use.
func Dispatch(ctx context.Context, store *sqlstore.Store, desc Descriptor, opts Options) (Loader, error) {
	if desc.Kind.List() {
		return Group(ctx, store, desc, opts)
	}
	return One(ctx, store, desc, opts)
}

// One acquires the single-row loader for a to-one relation.
func One(ctx context.Context, store *sqlstore.Store, desc Descriptor, opts Options) (*RowLoader, error) {
	if desc.Kind.List() {
		return nil, fmt.Errorf("relation %s: %s is not a to-one kind", desc.Table, desc.Kind)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	desc = desc.withDefaults()

	fingerprint := loader.Fingerprint(desc.selectionKey(), predicate.Key(opts.Filter))
	inner := loader.Acquire(ctx, desc.Name, fingerprint, func() *loader.Loader[any, sqlstore.Row] {
		fetch := &rowFetch{store: store, desc: desc, filter: opts.Filter}
		return loader.NewMapped(desc.Name, fetch.run, loader.WithHooks[any, sqlstore.Row](opts.Hooks))
	})
	return &RowLoader{inner: inner}, nil
}

// Group acquires the windowed group loader for a list relation. The
// effective sort is the caller's sort, or primary key ascending when
// absent, with the primary key always appended as tie-breaker.
func Group(ctx context.Context, store *sqlstore.Store, desc Descriptor, opts Options) (*GroupLoader, error) {
	if !desc.Kind.List() {
		return nil, fmt.Errorf("relation %s: %s is not a list kind", desc.Table, desc.Kind)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	desc = desc.withDefaults()

	page := pagination.DefaultPage(opts.Limits)
	if opts.Page != nil {
		page = opts.Page.Clamp(opts.Limits)
	}
	sort := opts.Sort
	if len(sort) == 0 {
		sort = pagination.SortInput{{Field: desc.PrimaryKey, Direction: pagination.Ascending}}
	}
	sort = sort.WithTieBreaker(desc.PrimaryKey)

	fingerprint := loader.Fingerprint(desc.selectionKey(), page.Key(), sort.Key(), predicate.Key(opts.Filter))
	inner := loader.Acquire(ctx, desc.Name, fingerprint, func() *loader.Loader[any, *pagination.Page[sqlstore.Row]] {
		fetch := &groupFetch{store: store, desc: desc, page: page, sort: sort, filter: opts.Filter}
		return loader.NewMapped(desc.Name, fetch.run, loader.WithHooks[any, *pagination.Page[sqlstore.Row]](opts.Hooks))
	})
	return &GroupLoader{inner: inner}, nil
}

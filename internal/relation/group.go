package relation

import (
	"context"
	"fmt"

	"graphloader/internal/loader"
	"graphloader/internal/pagination"
	"graphloader/internal/predicate"
	"graphloader/internal/sqlstore"
)

// GroupLoader batches windowed page fetches for one list relation under
// one (page, sort, filter) configuration. Load for several parents
// coalesces into a single window query on flush; each parent gets back
// its own page.
type GroupLoader struct {
	inner *loader.Loader[any, *pagination.Page[sqlstore.Row]]
}

// Load enqueues a parent key and returns the placeholder for its page.
func (g *GroupLoader) Load(ctx context.Context, parentKey any) *loader.Thunk[*pagination.Page[sqlstore.Row]] {
	return g.inner.Load(ctx, parentKey)
}

// Resolve adapts Load to the deferred-resolution closure shape the
// GraphQL engine drives.
func (g *GroupLoader) Resolve(ctx context.Context, parentKey any) func() (any, error) {
	thunk := g.inner.Load(ctx, parentKey)
	return func() (any, error) {
		return thunk.Value(ctx)
	}
}

type groupFetch struct {
	store  *sqlstore.Store
	desc   Descriptor
	page   pagination.PageInput
	sort   pagination.SortInput
	filter predicate.Node
}

// run is the batch function: one window fetch for all deduped parents,
// regrouped into per-parent pages. Every requested parent gets a page,
// so parents with no children come back as an empty page rather than
// the loader's missing sentinel.
func (f *groupFetch) run(ctx context.Context, keys []any) (map[any]*pagination.Page[sqlstore.Row], error) {
	rows, err := f.store.FetchWindow(ctx, sqlstore.WindowSpec{
		Table:      f.desc.Table,
		Columns:    f.desc.Columns,
		KeyColumn:  f.desc.ForeignKey,
		Join:       f.desc.Junction,
		ParentKeys: keys,
		Filter:     f.filter,
		Sort:       f.sort,
		RankStart:  f.page.Offset() + 1,
		RankEnd:    f.page.Offset() + f.page.Size + 1,
	})
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]sqlstore.Row)
	for _, row := range rows {
		key := fmt.Sprint(row[sqlstore.ParentKeyAlias])
		groups[key] = append(groups[key], row)
	}

	pages := make(map[any]*pagination.Page[sqlstore.Row], len(keys))
	for _, key := range keys {
		pages[key] = pagination.PageFromPeeked(groups[fmt.Sprint(key)], f.page, f.countFor(key))
	}
	return pages, nil
}

// countFor defers the per-parent total until a page is actually asked
// for it; one COUNT per parent, at most once.
func (f *groupFetch) countFor(key any) pagination.CountFunc {
	return func(ctx context.Context) (int, error) {
		return f.store.CountForParent(ctx, f.desc.Table, f.desc.ForeignKey, key, f.desc.Junction, f.filter)
	}
}

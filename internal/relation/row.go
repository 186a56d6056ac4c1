package relation

import (
	"context"
	"fmt"

	"graphloader/internal/loader"
	"graphloader/internal/predicate"
	"graphloader/internal/sqlstore"
)

// RowLoader batches single-row fetches for a to-one relation. A parent
// with no matching child resolves to a nil row.
type RowLoader struct {
	inner *loader.Loader[any, sqlstore.Row]
}

// Load enqueues a key and returns the placeholder for its row.
func (r *RowLoader) Load(ctx context.Context, key any) *loader.Thunk[sqlstore.Row] {
	return r.inner.Load(ctx, key)
}

// Resolve adapts Load to the deferred-resolution closure shape the
// GraphQL engine drives.
func (r *RowLoader) Resolve(ctx context.Context, key any) func() (any, error) {
	thunk := r.inner.Load(ctx, key)
	return func() (any, error) {
		row, err := thunk.Value(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		return row, nil
	}
}

type rowFetch struct {
	store  *sqlstore.Store
	desc   Descriptor
	filter predicate.Node
}

// run fetches all children whose key column matches the deduped keys in
// one query and distributes them by key. Duplicate matches keep the
// first row fetched.
func (f *rowFetch) run(ctx context.Context, keys []any) (map[any]sqlstore.Row, error) {
	keyColumn := f.desc.keyColumn()
	rows, err := f.store.FetchByKeys(
		ctx,
		f.desc.Table,
		ensureColumn(f.desc.Columns, keyColumn),
		keyColumn,
		keys,
		f.filter,
		nil,
	)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]sqlstore.Row, len(rows))
	for _, row := range rows {
		key := fmt.Sprint(row[keyColumn])
		if _, ok := byKey[key]; !ok {
			byKey[key] = row
		}
	}

	out := make(map[any]sqlstore.Row, len(keys))
	for _, key := range keys {
		if row, ok := byKey[fmt.Sprint(key)]; ok {
			out[key] = row
		}
	}
	return out, nil
}

func ensureColumn(columns []string, column string) []string {
	for _, c := range columns {
		if c == column {
			return columns
		}
	}
	out := make([]string, len(columns), len(columns)+1)
	copy(out, columns)
	return append(out, column)
}

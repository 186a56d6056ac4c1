package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"graphloader/internal/pagination"
	"graphloader/internal/predicate"
	"graphloader/internal/sqlutil"
)

// FetchSlice returns up to limit rows of table starting at offset, with
// the filter and sort applied. It backs root-level pagination, where
// there is no parent key to window over.
func (s *Store) FetchSlice(
	ctx context.Context,
	table string,
	columns []string,
	filter predicate.Node,
	sort pagination.SortInput,
	offset, limit int,
) ([]Row, error) {
	builder := sq.Select(quoteAll(columns)...).
		From(sqlutil.QuoteIdentifier(table))

	condition, err := predicate.ToSQL(filter)
	if err != nil {
		return nil, err
	}
	if condition != nil {
		builder = builder.Where(condition)
	}
	if clauses := sort.OrderClauses(""); len(clauses) > 0 {
		builder = builder.OrderBy(clauses...)
	}
	builder = builder.Offset(uint64(offset)).Limit(uint64(limit))

	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows, columns)
}

// Count returns the number of rows in table under the filter.
func (s *Store) Count(ctx context.Context, table string, filter predicate.Node) (int, error) {
	builder := sq.Select("COUNT(*)").From(sqlutil.QuoteIdentifier(table))

	condition, err := predicate.ToSQL(filter)
	if err != nil {
		return 0, err
	}
	if condition != nil {
		builder = builder.Where(condition)
	}

	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return 0, err
	}
	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("count query for %s returned no rows", table)
	}
	var count int
	if err := rows.Scan(&count); err != nil {
		return 0, err
	}
	return count, rows.Err()
}

// TableSequence adapts a filtered, sorted table to pagination.Sequence.
type TableSequence struct {
	Store   *Store
	Table   string
	Columns []string
	Filter  predicate.Node
	Sort    pagination.SortInput
}

func (t TableSequence) Slice(ctx context.Context, offset, limit int) ([]Row, error) {
	return t.Store.FetchSlice(ctx, t.Table, t.Columns, t.Filter, t.Sort, offset, limit)
}

func (t TableSequence) Count(ctx context.Context) (int, error) {
	return t.Store.Count(ctx, t.Table, t.Filter)
}

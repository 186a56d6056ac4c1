package sqlstore

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"graphloader/internal/pagination"
	"graphloader/internal/predicate"
	"graphloader/internal/sqlutil"
)

// Row is one fetched record keyed by column name.
type Row map[string]any

// ParentKeyAlias is the synthetic column carrying the parent key a child
// row belongs to, used to group windowed batch results.
const ParentKeyAlias = "__parent_key"

const defaultMaxInClause = 1000

// Store fetches child rows for batches of parent keys.
type Store struct {
	exec        Executor
	maxInClause int
	noWindowFns bool
}

// Option configures a Store.
type Option func(*Store)

// WithMaxInClause bounds how many keys one IN clause may carry; larger
// batches are chunked into several queries.
func WithMaxInClause(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxInClause = n
		}
	}
}

// WithoutWindowFunctions makes FetchWindow emulate per-group ranking in
// memory, for stores lacking ROW_NUMBER. The one-fetch-per-flush shape
// is preserved; only more rows travel over the wire.
func WithoutWindowFunctions() Option {
	return func(s *Store) {
		s.noWindowFns = true
	}
}

// New creates a Store over an executor.
func New(exec Executor, opts ...Option) *Store {
	s := &Store{exec: exec, maxInClause: defaultMaxInClause}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchByKeys returns all rows of table whose keyColumn is in keys, with
// the filter and sort applied. Key batches larger than the IN-clause
// bound are chunked; results keep per-chunk order.
func (s *Store) FetchByKeys(
	ctx context.Context,
	table string,
	columns []string,
	keyColumn string,
	keys []any,
	filter predicate.Node,
	sort pagination.SortInput,
) ([]Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var all []Row
	for _, chunk := range chunkKeys(keys, s.maxInClause) {
		rows, err := s.fetchChunk(ctx, table, columns, keyColumn, chunk, filter, sort)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (s *Store) fetchChunk(
	ctx context.Context,
	table string,
	columns []string,
	keyColumn string,
	keys []any,
	filter predicate.Node,
	sort pagination.SortInput,
) ([]Row, error) {
	builder := sq.Select(quoteAll(columns)...).
		From(sqlutil.QuoteIdentifier(table)).
		Where(sq.Eq{sqlutil.QuoteIdentifier(keyColumn): keys})

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

// CountForParent returns the number of child rows of one parent under
// the filter, serving lazily-computed page totals.
func (s *Store) CountForParent(
	ctx context.Context,
	table string,
	keyColumn string,
	key any,
	join *JoinSpec,
	filter predicate.Node,
) (int, error) {
	from := sqlutil.QuoteIdentifier(table)
	if join != nil {
		from = fmt.Sprintf(
			"%s INNER JOIN %s ON %s",
			sqlutil.QuoteIdentifier(table),
			sqlutil.QuoteIdentifier(join.Table),
			join.onClause(table),
		)
	}

	builder := sq.Select("COUNT(*)").
		From(from).
		Where(sq.Eq{countKeyColumn(table, keyColumn, join): key})

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

func countKeyColumn(table, keyColumn string, join *JoinSpec) string {
	if join != nil {
		return sqlutil.QualifyColumn(join.Table, join.ParentKeyColumn)
	}
	return sqlutil.QualifyColumn(table, keyColumn)
}

func chunkKeys(keys []any, max int) [][]any {
	if max <= 0 || len(keys) <= max {
		return [][]any{keys}
	}
	chunks := make([][]any, 0, (len(keys)+max-1)/max)
	for start := 0; start < len(keys); start += max {
		end := start + max
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, keys[start:end])
	}
	return chunks
}

func quoteAll(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = sqlutil.QuoteIdentifier(col)
	}
	return quoted
}

func joinStrings(parts []string) string {
	return strings.Join(parts, ", ")
}

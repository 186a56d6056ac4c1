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

const (
	rankAlias   = "__rn"
	windowAlias = "__window"
)

// JoinSpec describes the junction hop of a many-to-many relation.
type JoinSpec struct {
	// Table is the junction table.
	Table string
	// ParentKeyColumn is the junction column holding the parent key.
	ParentKeyColumn string
	// ChildKeyColumn is the junction column referencing the child table.
	ChildKeyColumn string
	// TargetKeyColumn is the child column the junction points at.
	TargetKeyColumn string
}

func (j *JoinSpec) onClause(target string) string {
	return fmt.Sprintf(
		"%s = %s",
		sqlutil.QualifyColumn(j.Table, j.ChildKeyColumn),
		sqlutil.QualifyColumn(target, j.TargetKeyColumn),
	)
}

// WindowSpec asks for, per distinct parent key, the child rows whose
// 1-based rank within that parent's sorted group falls in
// [RankStart, RankEnd]. Sort must already carry a deterministic
// tie-breaker.
type WindowSpec struct {
	Table      string
	Columns    []string
	KeyColumn  string // foreign key on the child table; unused when Join is set
	Join       *JoinSpec
	ParentKeys []any
	Filter     predicate.Node
	Sort       pagination.SortInput
	RankStart  int
	RankEnd    int
}

func (w WindowSpec) validate() error {
	if len(w.Columns) == 0 {
		return fmt.Errorf("window fetch on %s requires a column selection", w.Table)
	}
	if w.Join == nil && w.KeyColumn == "" {
		return fmt.Errorf("window fetch on %s requires a key column or a join", w.Table)
	}
	if w.RankStart < 1 || w.RankEnd < w.RankStart {
		return fmt.Errorf("window fetch on %s has invalid rank range [%d, %d]", w.Table, w.RankStart, w.RankEnd)
	}
	if len(w.Sort) == 0 {
		return fmt.Errorf("window fetch on %s requires a sort for deterministic ranking", w.Table)
	}
	return nil
}

// FetchWindow performs the single batched query behind windowed group
// pagination. Every returned row carries ParentKeyAlias so the caller
// can regroup rows per parent. With window functions disabled, all
// matching rows are fetched and ranked in memory instead; either way it
// is one query per flush.
func (s *Store) FetchWindow(ctx context.Context, spec WindowSpec) ([]Row, error) {
	if len(spec.ParentKeys) == 0 {
		return nil, nil
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	if s.noWindowFns {
		rows, err := s.fetchUnranked(ctx, spec)
		if err != nil {
			return nil, err
		}
		return rankInMemory(rows, spec.Sort, spec.RankStart, spec.RankEnd), nil
	}

	query, args, err := buildWindowQuery(spec)
	if err != nil {
		return nil, err
	}
	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows, spec.Columns, ParentKeyAlias)
}

// buildWindowQuery emits the ROW_NUMBER() OVER (PARTITION BY ...)
// subselect shared by the one-to-many and many-to-many shapes.
func buildWindowQuery(spec WindowSpec) (string, []any, error) {
	qualifier := ""
	partitionColumn := sqlutil.QuoteIdentifier(spec.KeyColumn)
	from := sqlutil.QuoteIdentifier(spec.Table)
	if spec.Join != nil {
		qualifier = spec.Table
		partitionColumn = sqlutil.QualifyColumn(spec.Join.Table, spec.Join.ParentKeyColumn)
		from = fmt.Sprintf(
			"%s INNER JOIN %s ON %s",
			sqlutil.QuoteIdentifier(spec.Table),
			sqlutil.QuoteIdentifier(spec.Join.Table),
			spec.Join.onClause(spec.Table),
		)
	}

	selectCols := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		selectCols[i] = sqlutil.QualifyColumn(qualifier, col)
	}
	innerList := joinStrings(selectCols)
	// The derived table exposes bare column names; qualified references
	// into it are invalid, so the outer select must not qualify.
	outerList := joinStrings(quoteAll(spec.Columns))
	orderClause := strings.Join(spec.Sort.OrderClauses(qualifier), ", ")

	keyPlaceholders := sq.Placeholders(len(spec.ParentKeys))
	args := append([]any{}, spec.ParentKeys...)

	filterSQL := ""
	condition, err := predicate.ToSQLQualified(spec.Filter, qualifier)
	if err != nil {
		return "", nil, err
	}
	if condition != nil {
		condSQL, condArgs, err := condition.ToSql()
		if err != nil {
			return "", nil, err
		}
		filterSQL = " AND " + condSQL
		args = append(args, condArgs...)
	}

	query := fmt.Sprintf(
		"SELECT %s, %s FROM (SELECT %s, %s AS %s, ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s) AS %s FROM %s WHERE %s IN (%s)%s) AS %s WHERE %s >= ? AND %s <= ? ORDER BY %s, %s",
		outerList, ParentKeyAlias,
		innerList, partitionColumn, ParentKeyAlias,
		partitionColumn, orderClause, rankAlias,
		from,
		partitionColumn, keyPlaceholders, filterSQL,
		windowAlias,
		rankAlias, rankAlias,
		ParentKeyAlias, rankAlias,
	)
	args = append(args, spec.RankStart, spec.RankEnd)
	return query, args, nil
}

// fetchUnranked is the no-window-function path: every row matching the
// parent keys and filter, ranking deferred to rankInMemory.
func (s *Store) fetchUnranked(ctx context.Context, spec WindowSpec) ([]Row, error) {
	qualifier := ""
	partitionColumn := sqlutil.QuoteIdentifier(spec.KeyColumn)
	from := sqlutil.QuoteIdentifier(spec.Table)
	if spec.Join != nil {
		qualifier = spec.Table
		partitionColumn = sqlutil.QualifyColumn(spec.Join.Table, spec.Join.ParentKeyColumn)
		from = fmt.Sprintf(
			"%s INNER JOIN %s ON %s",
			sqlutil.QuoteIdentifier(spec.Table),
			sqlutil.QuoteIdentifier(spec.Join.Table),
			spec.Join.onClause(spec.Table),
		)
	}

	selectCols := make([]string, 0, len(spec.Columns)+1)
	for _, col := range spec.Columns {
		selectCols = append(selectCols, sqlutil.QualifyColumn(qualifier, col))
	}
	selectCols = append(selectCols, fmt.Sprintf("%s AS %s", partitionColumn, ParentKeyAlias))

	builder := sq.Select(selectCols...).
		From(from).
		Where(sq.Expr(fmt.Sprintf("%s IN (%s)", partitionColumn, sq.Placeholders(len(spec.ParentKeys))), spec.ParentKeys...))

	condition, err := predicate.ToSQLQualified(spec.Filter, qualifier)
	if err != nil {
		return nil, err
	}
	if condition != nil {
		builder = builder.Where(condition)
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
	return scanRows(rows, spec.Columns, ParentKeyAlias)
}

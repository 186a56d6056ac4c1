package pagination

import (
	"fmt"
	"strings"

	"graphloader/internal/sqlutil"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// NullsPosition controls where NULL values sort.
type NullsPosition string

const (
	NullsDefault NullsPosition = ""
	NullsFirst   NullsPosition = "FIRST"
	NullsLast    NullsPosition = "LAST"
)

// SortField orders by one column.
type SortField struct {
	Field     string
	Direction Direction
	Nulls     NullsPosition
}

// SortInput is an ordered list of sort fields.
type SortInput []SortField

// OrderClauses renders the sort as SQL ORDER BY expressions, optionally
// qualifying columns with alias. MySQL has no NULLS FIRST/LAST syntax, so
// an IS NULL expression is prepended when a nulls position is requested.
func (s SortInput) OrderClauses(alias string) []string {
	clauses := make([]string, 0, len(s)*2)
	for _, field := range s {
		column := sqlutil.QualifyColumn(alias, field.Field)
		switch field.Nulls {
		case NullsFirst:
			clauses = append(clauses, fmt.Sprintf("(%s IS NULL) DESC", column))
		case NullsLast:
			clauses = append(clauses, fmt.Sprintf("(%s IS NULL) ASC", column))
		}
		direction := Ascending
		if field.Direction == Descending {
			direction = Descending
		}
		clauses = append(clauses, fmt.Sprintf("%s %s", column, direction))
	}
	return clauses
}

// WithTieBreaker appends a final ascending sort on column unless it is
// already present, making window ranking deterministic under ties.
func (s SortInput) WithTieBreaker(column string) SortInput {
	for _, field := range s {
		if field.Field == column {
			return s
		}
	}
	out := make(SortInput, len(s), len(s)+1)
	copy(out, s)
	return append(out, SortField{Field: column, Direction: Ascending})
}

// Key is the stable fingerprint fragment for this sort.
func (s SortInput) Key() string {
	if len(s) == 0 {
		return "sort="
	}
	parts := make([]string, len(s))
	for i, field := range s {
		parts[i] = fmt.Sprintf("%s:%s:%s", field.Field, field.Direction, field.Nulls)
	}
	return "sort=" + strings.Join(parts, ",")
}

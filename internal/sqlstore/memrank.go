package sqlstore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"graphloader/internal/pagination"
)

// rankInMemory reproduces the ROW_NUMBER window in Go: rows are grouped
// by parent key, each group sorted per the sort input, and only the
// 1-based ranks in [rankStart, rankEnd] kept. Group order follows first
// appearance, matching the ORDER BY __parent_key, __rn shape of the SQL
// path closely enough for callers that regroup by parent key anyway.
func rankInMemory(rows []Row, sortInput pagination.SortInput, rankStart, rankEnd int) []Row {
	groups := make(map[string][]Row)
	var order []string
	for _, row := range rows {
		key := fmt.Sprint(row[ParentKeyAlias])
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	var out []Row
	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return lessRows(group[i], group[j], sortInput)
		})
		lo := rankStart - 1
		if lo >= len(group) {
			continue
		}
		hi := rankEnd
		if hi > len(group) {
			hi = len(group)
		}
		out = append(out, group[lo:hi]...)
	}
	return out
}

func lessRows(a, b Row, sortInput pagination.SortInput) bool {
	for _, field := range sortInput {
		if c := compareField(a[field.Field], b[field.Field], field); c != 0 {
			return c < 0
		}
	}
	return false
}

// compareField orders two values under one sort field, with MySQL null
// semantics as the default: NULLs first ascending, last descending.
func compareField(av, bv any, field pagination.SortField) int {
	aNull := av == nil
	bNull := bv == nil
	if aNull || bNull {
		if aNull && bNull {
			return 0
		}
		nullsFirst := false
		switch field.Nulls {
		case pagination.NullsFirst:
			nullsFirst = true
		case pagination.NullsLast:
			nullsFirst = false
		default:
			nullsFirst = field.Direction != pagination.Descending
		}
		if aNull {
			if nullsFirst {
				return -1
			}
			return 1
		}
		if nullsFirst {
			return 1
		}
		return -1
	}

	c := compareValues(av, bv)
	if field.Direction == pagination.Descending {
		c = -c
	}
	return c
}

func compareValues(a, b any) int {
	if af, aOK := toFloat(a); aOK {
		if bf, bOK := toFloat(b); bOK {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, aOK := a.(time.Time); aOK {
		if bt, bOK := b.(time.Time); bOK {
			return at.Compare(bt)
		}
	}
	if ab, aOK := a.(bool); aOK {
		if bb, bOK := b.(bool); bOK {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

package predicate

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"graphloader/internal/sqlutil"
)

// ToSQL translates a predicate tree into a squirrel condition. It is the
// only place store-specific syntax appears. A Noop tree translates to nil,
// meaning no WHERE condition at all.
func ToSQL(n Node) (sq.Sqlizer, error) {
	return toSQLQualified(n, "")
}

// ToSQLQualified is ToSQL with column names qualified as alias.column,
// for use inside joins and window subselects.
func ToSQLQualified(n Node, alias string) (sq.Sqlizer, error) {
	return toSQLQualified(n, alias)
}

func toSQLQualified(n Node, alias string) (sq.Sqlizer, error) {
	if IsNoop(n) {
		return nil, nil
	}

	switch node := n.(type) {
	case Leaf:
		return leafToSQL(node, alias)
	case AndNode:
		left, err := toSQLQualified(node.Left, alias)
		if err != nil {
			return nil, err
		}
		right, err := toSQLQualified(node.Right, alias)
		if err != nil {
			return nil, err
		}
		return sq.And{left, right}, nil
	case OrNode:
		left, err := toSQLQualified(node.Left, alias)
		if err != nil {
			return nil, err
		}
		right, err := toSQLQualified(node.Right, alias)
		if err != nil {
			return nil, err
		}
		return sq.Or{left, right}, nil
	case NotNode:
		inner, err := toSQLQualified(node.Inner, alias)
		if err != nil {
			return nil, err
		}
		innerSQL, innerArgs, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr(fmt.Sprintf("NOT (%s)", innerSQL), innerArgs...), nil
	default:
		return nil, fmt.Errorf("unsupported predicate node %T", n)
	}
}

func leafToSQL(leaf Leaf, alias string) (sq.Sqlizer, error) {
	column := sqlutil.QuoteIdentifier(leaf.Field)
	if alias != "" {
		column = fmt.Sprintf("%s.%s", sqlutil.QuoteIdentifier(alias), column)
	}

	switch leaf.Op {
	case OpEq:
		return sq.Eq{column: leaf.Value}, nil
	case OpNe:
		return sq.NotEq{column: leaf.Value}, nil
	case OpLt:
		return sq.Lt{column: leaf.Value}, nil
	case OpLte:
		return sq.LtOrEq{column: leaf.Value}, nil
	case OpGt:
		return sq.Gt{column: leaf.Value}, nil
	case OpGte:
		return sq.GtOrEq{column: leaf.Value}, nil
	case OpIn:
		values, err := listValues(leaf)
		if err != nil {
			return nil, err
		}
		return sq.Eq{column: values}, nil
	case OpNotIn:
		values, err := listValues(leaf)
		if err != nil {
			return nil, err
		}
		return sq.NotEq{column: values}, nil
	case OpLike:
		return sq.Like{column: leaf.Value}, nil
	case OpNotLike:
		return sq.NotLike{column: leaf.Value}, nil
	case OpContains:
		return sq.Like{column: fmt.Sprintf("%%%v%%", leaf.Value)}, nil
	case OpStartsWith:
		return sq.Like{column: fmt.Sprintf("%v%%", leaf.Value)}, nil
	case OpEndsWith:
		return sq.Like{column: fmt.Sprintf("%%%v", leaf.Value)}, nil
	case OpBetween:
		values, err := listValues(leaf)
		if err != nil {
			return nil, err
		}
		if len(values) != 2 {
			return nil, inputErr(leaf.Field, "between requires exactly two values, got %d", len(values))
		}
		return sq.Expr(fmt.Sprintf("%s BETWEEN ? AND ?", column), values[0], values[1]), nil
	case OpIsNull:
		isNull, ok := leaf.Value.(bool)
		if !ok {
			return nil, inputErr(leaf.Field, "isNull requires a boolean value")
		}
		if isNull {
			return sq.Eq{column: nil}, nil
		}
		return sq.NotEq{column: nil}, nil
	default:
		return nil, configErr(leaf.Field, "unknown operator %q", leaf.Op)
	}
}

func listValues(leaf Leaf) ([]any, error) {
	switch v := leaf.Value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case []int64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	default:
		return nil, inputErr(leaf.Field, "operator %q requires a list value, got %T", leaf.Op, leaf.Value)
	}
}

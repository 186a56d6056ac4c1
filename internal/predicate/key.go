package predicate

import (
	"fmt"
	"strings"
)

// Key renders a tree as a stable fingerprint fragment, so loaders built
// for different filters never share a cache bucket. Equal trees always
// produce equal keys.
func Key(n Node) string {
	return "filter=" + keyOf(n)
}

func keyOf(n Node) string {
	switch node := n.(type) {
	case nil, Noop:
		return ""
	case Leaf:
		return fmt.Sprintf("%s:%s:%s", node.Field, node.Op, valueKey(node.Value))
	case AndNode:
		return "and(" + keyOf(node.Left) + "," + keyOf(node.Right) + ")"
	case OrNode:
		return "or(" + keyOf(node.Left) + "," + keyOf(node.Right) + ")"
	case NotNode:
		return "not(" + keyOf(node.Inner) + ")"
	default:
		return fmt.Sprintf("%#v", n)
	}
}

func valueKey(v any) string {
	switch value := v.(type) {
	case []any:
		parts := make([]string, len(value))
		for i, item := range value {
			parts[i] = fmt.Sprint(item)
		}
		return "[" + strings.Join(parts, ";") + "]"
	case []string:
		return "[" + strings.Join(value, ";") + "]"
	default:
		return fmt.Sprint(v)
	}
}

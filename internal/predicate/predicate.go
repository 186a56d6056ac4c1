// Package predicate provides an immutable boolean expression tree over
// (field, operator, value) leaves. Trees are built once per request from
// user filter input and translated to SQL in exactly one place (ToSQL),
// keeping the tree itself store-agnostic.
package predicate

// Op is a filter operator drawn from a fixed allow-list.
type Op string

const (
	OpEq         Op = "eq"
	OpNe         Op = "ne"
	OpLt         Op = "lt"
	OpLte        Op = "lte"
	OpGt         Op = "gt"
	OpGte        Op = "gte"
	OpIn         Op = "in"
	OpNotIn      Op = "notIn"
	OpLike       Op = "like"
	OpNotLike    Op = "notLike"
	OpBetween    Op = "between"
	OpIsNull     Op = "isNull"
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"
)

var allOps = map[Op]struct{}{
	OpEq: {}, OpNe: {}, OpLt: {}, OpLte: {}, OpGt: {}, OpGte: {},
	OpIn: {}, OpNotIn: {}, OpLike: {}, OpNotLike: {}, OpBetween: {},
	OpIsNull: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {},
}

// listOps is the subset of operators whose value is a collection.
var listOps = map[Op]struct{}{
	OpIn: {}, OpNotIn: {}, OpBetween: {},
}

// KnownOp reports whether op is in the operator allow-list.
func KnownOp(op Op) bool {
	_, ok := allOps[op]
	return ok
}

// ListOp reports whether op takes a collection value.
func ListOp(op Op) bool {
	_, ok := listOps[op]
	return ok
}

// Node is one of Leaf, AndNode, OrNode, NotNode, or Noop.
type Node interface {
	isNode()
}

// Noop is the identity element: And(Noop, x) == x, Or(Noop, x) == x,
// Not(Noop) == Noop.
type Noop struct{}

// Leaf is a single (field, operator, value) comparison.
type Leaf struct {
	Field string
	Op    Op
	Value any
}

// AndNode is the conjunction of two subtrees.
type AndNode struct {
	Left  Node
	Right Node
}

// OrNode is the disjunction of two subtrees.
type OrNode struct {
	Left  Node
	Right Node
}

// NotNode negates its inner subtree.
type NotNode struct {
	Inner Node
}

func (Noop) isNode()    {}
func (Leaf) isNode()    {}
func (AndNode) isNode() {}
func (OrNode) isNode()  {}
func (NotNode) isNode() {}

// IsNoop reports whether n is absent or the identity node.
func IsNoop(n Node) bool {
	if n == nil {
		return true
	}
	_, ok := n.(Noop)
	return ok
}

// And combines two trees conjunctively, absorbing Noop operands.
func And(a, b Node) Node {
	if IsNoop(a) {
		if IsNoop(b) {
			return Noop{}
		}
		return b
	}
	if IsNoop(b) {
		return a
	}
	return AndNode{Left: a, Right: b}
}

// Or combines two trees disjunctively, absorbing Noop operands.
func Or(a, b Node) Node {
	if IsNoop(a) {
		if IsNoop(b) {
			return Noop{}
		}
		return b
	}
	if IsNoop(b) {
		return a
	}
	return OrNode{Left: a, Right: b}
}

// Not negates a tree. Negating Noop yields Noop, and a double negation
// collapses back to the original subtree.
func Not(n Node) Node {
	if IsNoop(n) {
		return Noop{}
	}
	if inner, ok := n.(NotNode); ok {
		return inner.Inner
	}
	return NotNode{Inner: n}
}

// AndAll folds a slice of trees into one conjunction.
func AndAll(nodes ...Node) Node {
	result := Node(Noop{})
	for _, n := range nodes {
		result = And(result, n)
	}
	return result
}

// OrAll folds a slice of trees into one disjunction.
func OrAll(nodes ...Node) Node {
	result := Node(Noop{})
	for _, n := range nodes {
		result = Or(result, n)
	}
	return result
}

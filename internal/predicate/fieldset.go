package predicate

import "sort"

// Binding ties a declared filter input field to a target column and
// operator. List reports whether the operator expects a collection value.
type Binding struct {
	Column string
	Op     Op
	List   bool
}

// FieldSet is the setup-time registry of filter bindings for one child
// type. Bindings are validated when registered so that a bad declaration
// fails at startup rather than at flush time.
type FieldSet struct {
	columns  map[string]struct{}
	bindings map[string]Binding
	order    []string
}

// NewFieldSet creates a FieldSet whose bindings may only target the given
// columns.
func NewFieldSet(columns ...string) *FieldSet {
	set := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		set[col] = struct{}{}
	}
	return &FieldSet{
		columns:  set,
		bindings: make(map[string]Binding),
	}
}

// Register binds a scalar-valued input field to (column, op).
func (fs *FieldSet) Register(field, column string, op Op) error {
	if ListOp(op) {
		return configErr(field, "operator %q requires a list value; use RegisterList", op)
	}
	return fs.register(field, column, op, false)
}

// RegisterList binds a list-valued input field to (column, op). The
// operator must be one of the supports-list subset.
func (fs *FieldSet) RegisterList(field, column string, op Op) error {
	if !ListOp(op) {
		return configErr(field, "operator %q does not accept a list value", op)
	}
	return fs.register(field, column, op, true)
}

// MustRegister is Register but panics on error; intended for static
// schema setup where a bad binding is a programming mistake.
func (fs *FieldSet) MustRegister(field, column string, op Op) {
	if err := fs.Register(field, column, op); err != nil {
		panic(err)
	}
}

// MustRegisterList is RegisterList but panics on error.
func (fs *FieldSet) MustRegisterList(field, column string, op Op) {
	if err := fs.RegisterList(field, column, op); err != nil {
		panic(err)
	}
}

func (fs *FieldSet) register(field, column string, op Op, list bool) error {
	if !KnownOp(op) {
		return configErr(field, "unknown operator %q", op)
	}
	if _, ok := fs.columns[column]; !ok {
		return configErr(field, "unknown target column %q", column)
	}
	if _, ok := fs.bindings[field]; ok {
		return configErr(field, "duplicate registration")
	}
	fs.bindings[field] = Binding{Column: column, Op: op, List: list}
	fs.order = append(fs.order, field)
	return nil
}

// Fields returns the registered field names in registration order.
func (fs *FieldSet) Fields() []string {
	return append([]string(nil), fs.order...)
}

// Binding returns the binding for a registered field.
func (fs *FieldSet) Binding(field string) (Binding, bool) {
	b, ok := fs.bindings[field]
	return b, ok
}

// Build assembles a predicate tree from user-supplied values, one leaf per
// registered field present in values. Absent and nil values contribute
// Noop, so a fully unset input collapses to the identity tree. Fields in
// values that were never registered are an input error.
func (fs *FieldSet) Build(values map[string]any) (Node, error) {
	if err := fs.checkUnknown(values); err != nil {
		return nil, err
	}
	tree := Node(Noop{})
	for _, field := range fs.order {
		value, ok := values[field]
		if !ok || value == nil {
			continue
		}
		binding := fs.bindings[field]
		if binding.List {
			if _, isList := value.([]any); !isList {
				if _, isStrList := value.([]string); !isStrList {
					return nil, inputErr(field, "operator %q requires a list value", binding.Op)
				}
			}
		}
		tree = And(tree, Leaf{Field: binding.Column, Op: binding.Op, Value: value})
	}
	return tree, nil
}

func (fs *FieldSet) checkUnknown(values map[string]any) error {
	unknown := make([]string, 0, 1)
	for field := range values {
		if _, ok := fs.bindings[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return inputErr(unknown[0], "field is not a registered filter")
}

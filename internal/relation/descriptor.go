// Package relation models the four relationship shapes between a parent
// row and its related child rows, and dispatches each shape to the
// loader variant that can batch it: a single-row loader for to-one
// kinds, the windowed group loader for list kinds.
package relation

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"graphloader/internal/sqlstore"
)

// Kind is the shape of a relation as seen from the parent.
type Kind string

const (
	OneToOne   Kind = "oneToOne"
	ManyToOne  Kind = "manyToOne"
	OneToMany  Kind = "oneToMany"
	ManyToMany Kind = "manyToMany"
)

// List reports whether the relation resolves to a page of rows rather
// than a single row.
func (k Kind) List() bool {
	return k == OneToMany || k == ManyToMany
}

func (k Kind) known() bool {
	switch k {
	case OneToOne, ManyToOne, OneToMany, ManyToMany:
		return true
	}
	return false
}

// Descriptor is the static description of one relation: which child
// table it reaches, through which key columns, and in what shape.
// Descriptors are built once at schema-construction time.
type Descriptor struct {
	// Name identifies the relation's loader kind within a request scope.
	// Empty defaults to kind:table.
	Name string
	// Kind is the relation shape.
	Kind Kind
	// Table is the child table.
	Table string
	// Columns are the child columns to select.
	Columns []string
	// PrimaryKey is the child primary key column. Empty defaults to id.
	PrimaryKey string
	// ForeignKey is the linking column: on the child table for OneToOne
	// and OneToMany, on the parent row for ManyToOne. Unused for
	// ManyToMany, where Junction carries the keys.
	ForeignKey string
	// Junction describes the junction hop for ManyToMany.
	Junction *sqlstore.JoinSpec
}

func (d Descriptor) withDefaults() Descriptor {
	if d.PrimaryKey == "" {
		d.PrimaryKey = "id"
	}
	if d.Name == "" {
		d.Name = string(d.Kind) + ":" + d.Table
	}
	return d
}

// Validate rejects descriptors that cannot be dispatched. Like filter
// bindings, a bad descriptor is a setup mistake and should fail at
// schema construction.
func (d Descriptor) Validate() error {
	if !d.Kind.known() {
		return fmt.Errorf("relation %s: unknown kind %q", d.Table, d.Kind)
	}
	if d.Table == "" {
		return fmt.Errorf("relation of kind %s: missing child table", d.Kind)
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("relation %s: missing column selection", d.Table)
	}
	if d.Kind == ManyToMany {
		if d.Junction == nil {
			return fmt.Errorf("relation %s: many-to-many requires a junction", d.Table)
		}
		return nil
	}
	if d.Junction != nil {
		return fmt.Errorf("relation %s: junction is only valid for many-to-many", d.Table)
	}
	if d.ForeignKey == "" {
		return fmt.Errorf("relation %s: missing foreign key column", d.Kind)
	}
	return nil
}

// FieldName is the default GraphQL field name for the relation: the
// singularized child table name, re-pluralized for list shapes.
func (d Descriptor) FieldName() string {
	singular := inflection.Singular(d.Table)
	if d.Kind.List() {
		return inflection.Plural(singular)
	}
	return singular
}

// selectionKey canonicalizes the columns and linking keys for the
// loader fingerprint. Two same-kind relations to one table that select
// different columns or join through different keys must not share a
// cache bucket even when they share the default Name.
func (d Descriptor) selectionKey() string {
	key := "cols=" + strings.Join(d.Columns, ",")
	if d.Junction != nil {
		return key + ";via=" + d.Junction.Table + ":" + d.Junction.ParentKeyColumn + ":" + d.Junction.ChildKeyColumn
	}
	if d.ForeignKey != "" {
		return key + ";key=" + d.ForeignKey
	}
	return key
}

// keyColumn is the child column whose values match the loader's parent
// keys for to-one kinds.
func (d Descriptor) keyColumn() string {
	d = d.withDefaults()
	if d.Kind == ManyToOne {
		return d.PrimaryKey
	}
	return d.ForeignKey
}

package resolver

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"graphloader/internal/predicate"
	"graphloader/internal/relation"
)

// Column declares one selectable column of an entity and its GraphQL
// representation.
type Column struct {
	Name string
	Type graphql.Output
}

// FilterField declares one filterable input field: its exposed name, the
// column and operator it binds to, and the GraphQL type of a single
// value. List-valued operators wrap Type in a list automatically.
type FilterField struct {
	Name   string
	Column string
	Op     predicate.Op
	Type   graphql.Input
}

// Entity declares one queryable type backed by a table, with its filter
// surface and outgoing relations. Entities are registered at startup;
// declaration mistakes fail schema construction.
type Entity struct {
	Name       string
	Table      string
	PrimaryKey string
	Columns    []Column
	Filter     []FilterField
	Relations  []relation.Descriptor
}

type entityState struct {
	def         Entity
	columnNames []string
	columnSet   map[string]struct{}
	fields      *predicate.FieldSet
	object      *graphql.Object
	page        *graphql.Object
	filterInput *graphql.InputObject
}

func newEntityState(def Entity) (*entityState, error) {
	if def.Name == "" || def.Table == "" {
		return nil, fmt.Errorf("entity %q: name and table are required", def.Name)
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("entity %s: at least one column is required", def.Name)
	}
	if def.PrimaryKey == "" {
		def.PrimaryKey = "id"
	}

	state := &entityState{
		def:         def,
		columnNames: make([]string, len(def.Columns)),
		columnSet:   make(map[string]struct{}, len(def.Columns)),
	}
	for i, col := range def.Columns {
		state.columnNames[i] = col.Name
		state.columnSet[col.Name] = struct{}{}
	}
	if _, ok := state.columnSet[def.PrimaryKey]; !ok {
		return nil, fmt.Errorf("entity %s: primary key %q is not a declared column", def.Name, def.PrimaryKey)
	}

	if err := state.buildFilter(); err != nil {
		return nil, err
	}
	state.buildObject()
	return state, nil
}

func (s *entityState) buildFilter() error {
	if len(s.def.Filter) == 0 {
		return nil
	}
	s.fields = predicate.NewFieldSet(s.columnNames...)
	inputFields := graphql.InputObjectConfigFieldMap{}
	for _, f := range s.def.Filter {
		if predicate.ListOp(f.Op) {
			if err := s.fields.RegisterList(f.Name, f.Column, f.Op); err != nil {
				return fmt.Errorf("entity %s: %w", s.def.Name, err)
			}
			inputFields[f.Name] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(f.Type)}
			continue
		}
		if err := s.fields.Register(f.Name, f.Column, f.Op); err != nil {
			return fmt.Errorf("entity %s: %w", s.def.Name, err)
		}
		inputFields[f.Name] = &graphql.InputObjectFieldConfig{Type: f.Type}
	}
	s.filterInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   s.def.Name + "Filter",
		Fields: inputFields,
	})
	return nil
}

func (s *entityState) buildObject() {
	fields := graphql.Fields{}
	for _, col := range s.def.Columns {
		fields[col.Name] = &graphql.Field{
			Type:    col.Type,
			Resolve: columnResolver(col.Name),
		}
	}
	s.object = graphql.NewObject(graphql.ObjectConfig{
		Name:   s.def.Name,
		Fields: fields,
	})
	s.page = pageObject(s.def.Name, s.object)
}

// Package resolver assembles the GraphQL schema from declared entities
// and relation descriptors. Relation fields resolve to deferred
// closures backed by request-scoped loaders, so sibling fields across a
// result set coalesce into one batched fetch when the engine drives the
// deferred work.
package resolver

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/jinzhu/inflection"

	"graphloader/internal/loader"
	"graphloader/internal/pagination"
	"graphloader/internal/relation"
	"graphloader/internal/sqlstore"
)

// Builder accumulates entities and produces the executable schema.
type Builder struct {
	store  *sqlstore.Store
	limits pagination.Limits
	hooks  loader.Hooks

	entities []*entityState
	byName   map[string]*entityState
	byTable  map[string]*entityState
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLimits sets the pagination bounds applied to every page argument.
func WithLimits(limits pagination.Limits) BuilderOption {
	return func(b *Builder) {
		b.limits = limits
	}
}

// WithHooks attaches loader metric hooks to every loader the schema
// creates.
func WithHooks(hooks loader.Hooks) BuilderOption {
	return func(b *Builder) {
		b.hooks = hooks
	}
}

// NewBuilder creates a schema builder over a store.
func NewBuilder(store *sqlstore.Store, opts ...BuilderOption) *Builder {
	b := &Builder{
		store:   store,
		limits:  pagination.DefaultLimits(),
		byName:  make(map[string]*entityState),
		byTable: make(map[string]*entityState),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddEntity registers an entity. Declaration errors surface here, at
// startup, rather than at request time.
func (b *Builder) AddEntity(def Entity) error {
	if _, dup := b.byName[def.Name]; dup {
		return fmt.Errorf("entity %s: already registered", def.Name)
	}
	state, err := newEntityState(def)
	if err != nil {
		return err
	}
	b.entities = append(b.entities, state)
	b.byName[def.Name] = state
	b.byTable[def.Table] = state
	return nil
}

// MustAddEntity is AddEntity but panics on error, for static schemas.
func (b *Builder) MustAddEntity(def Entity) {
	if err := b.AddEntity(def); err != nil {
		panic(err)
	}
}

// Schema wires relation fields and root queries and builds the schema.
func (b *Builder) Schema() (graphql.Schema, error) {
	for _, parent := range b.entities {
		for _, desc := range parent.def.Relations {
			if err := b.addRelationField(parent, desc); err != nil {
				return graphql.Schema{}, err
			}
		}
	}

	queryFields := graphql.Fields{}
	for _, state := range b.entities {
		single, plural := queryNames(state.def.Name)
		queryFields[single] = b.singularQuery(state)
		queryFields[plural] = b.pluralQuery(state)
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
	})
}

func (b *Builder) addRelationField(parent *entityState, desc relation.Descriptor) error {
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("entity %s: %w", parent.def.Name, err)
	}
	child, ok := b.byTable[desc.Table]
	if !ok {
		return fmt.Errorf("entity %s: relation %s targets unregistered table %s", parent.def.Name, desc.FieldName(), desc.Table)
	}

	if desc.Kind.List() {
		parent.object.AddFieldConfig(desc.FieldName(), &graphql.Field{
			Type:    child.page,
			Args:    b.listArgs(child),
			Resolve: b.listRelationResolver(parent, child, desc),
		})
		return nil
	}
	parent.object.AddFieldConfig(desc.FieldName(), &graphql.Field{
		Type:    child.object,
		Resolve: b.toOneRelationResolver(parent, desc),
	})
	return nil
}

func (b *Builder) listArgs(child *entityState) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"page": &graphql.ArgumentConfig{Type: pageInputType},
		"sort": &graphql.ArgumentConfig{Type: graphql.NewList(sortFieldInputType)},
	}
	if child.filterInput != nil {
		args["filter"] = &graphql.ArgumentConfig{Type: child.filterInput}
	}
	return args
}

func (b *Builder) listRelationResolver(parent, child *entityState, desc relation.Descriptor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		source, ok := p.Source.(sqlstore.Row)
		if !ok {
			return nil, fmt.Errorf("%s.%s: unexpected source %T", parent.def.Name, desc.FieldName(), p.Source)
		}
		opts, err := b.parseOptions(child, p.Args)
		if err != nil {
			return nil, err
		}
		group, err := relation.Group(p.Context, b.store, desc, opts)
		if err != nil {
			return nil, err
		}
		return group.Resolve(p.Context, source[parent.def.PrimaryKey]), nil
	}
}

func (b *Builder) toOneRelationResolver(parent *entityState, desc relation.Descriptor) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		source, ok := p.Source.(sqlstore.Row)
		if !ok {
			return nil, fmt.Errorf("%s.%s: unexpected source %T", parent.def.Name, desc.FieldName(), p.Source)
		}

		key := source[parent.def.PrimaryKey]
		if desc.Kind == relation.ManyToOne {
			key = source[desc.ForeignKey]
			// A null foreign key means no related row; skip the loader.
			if key == nil {
				return nil, nil
			}
		}

		row, err := relation.One(p.Context, b.store, desc, relation.Options{Hooks: b.hooks})
		if err != nil {
			return nil, err
		}
		return row.Resolve(p.Context, key), nil
	}
}

// singularQuery fetches one entity by primary key, batched through the
// same row loader the relation fields use so root lookups coalesce too.
func (b *Builder) singularQuery(state *entityState) *graphql.Field {
	desc := relation.Descriptor{
		Name:       "byId:" + state.def.Table,
		Kind:       relation.ManyToOne,
		Table:      state.def.Table,
		Columns:    state.columnNames,
		PrimaryKey: state.def.PrimaryKey,
		ForeignKey: state.def.PrimaryKey,
	}
	return &graphql.Field{
		Type: state.object,
		Args: graphql.FieldConfigArgument{
			"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			row, err := relation.One(p.Context, b.store, desc, relation.Options{Hooks: b.hooks})
			if err != nil {
				return nil, err
			}
			return row.Resolve(p.Context, p.Args["id"]), nil
		},
	}
}

func (b *Builder) pluralQuery(state *entityState) *graphql.Field {
	return &graphql.Field{
		Type: state.page,
		Args: b.listArgs(state),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			opts, err := b.parseOptions(state, p.Args)
			if err != nil {
				return nil, err
			}

			page := pagination.DefaultPage(b.limits)
			if opts.Page != nil {
				page = *opts.Page
			}
			sort := opts.Sort
			if len(sort) == 0 {
				sort = pagination.SortInput{{Field: state.def.PrimaryKey, Direction: pagination.Ascending}}
			}
			sort = sort.WithTieBreaker(state.def.PrimaryKey)

			seq := sqlstore.TableSequence{
				Store:   b.store,
				Table:   state.def.Table,
				Columns: state.columnNames,
				Filter:  opts.Filter,
				Sort:    sort,
			}
			return pagination.Paginate[sqlstore.Row](p.Context, seq, page, b.limits)
		},
	}
}

func queryNames(entityName string) (single, plural string) {
	single = strings.ToLower(entityName[:1]) + entityName[1:]
	return single, inflection.Plural(single)
}

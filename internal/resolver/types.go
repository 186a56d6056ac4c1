package resolver

import (
	"github.com/graphql-go/graphql"

	"graphloader/internal/pagination"
	"graphloader/internal/sqlstore"
)

var sortDirectionEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "SortDirection",
	Values: graphql.EnumValueConfigMap{
		"ASC":  &graphql.EnumValueConfig{Value: string(pagination.Ascending)},
		"DESC": &graphql.EnumValueConfig{Value: string(pagination.Descending)},
	},
})

var nullsPositionEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "NullsPosition",
	Values: graphql.EnumValueConfigMap{
		"FIRST": &graphql.EnumValueConfig{Value: string(pagination.NullsFirst)},
		"LAST":  &graphql.EnumValueConfig{Value: string(pagination.NullsLast)},
	},
})

// pageInputType is the shared page window argument: 1-based number plus
// size, where size -1 requests the configured all-items cap.
var pageInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "PageInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"number": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"size":   &graphql.InputObjectFieldConfig{Type: graphql.Int},
	},
})

var sortFieldInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "SortFieldInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"field":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"direction": &graphql.InputObjectFieldConfig{Type: sortDirectionEnum},
		"nulls":     &graphql.InputObjectFieldConfig{Type: nullsPositionEnum},
	},
})

// pageObject builds the page wrapper type for one entity. Totals are
// resolved only when the query selects them, so the extra COUNT is never
// issued for queries that stick to items and the peek-ahead flags.
func pageObject(name string, item *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Page",
		Fields: graphql.Fields{
			"items": &graphql.Field{
				Type: graphql.NewList(item),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sourcePage(p).Items, nil
				},
			},
			"pageNumber": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sourcePage(p).Number, nil
				},
			},
			"pageSize": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sourcePage(p).Size, nil
				},
			},
			"hasNextPage": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sourcePage(p).HasNext, nil
				},
			},
			"hasPreviousPage": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sourcePage(p).HasPrevious, nil
				},
			},
			"totalItems": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sourcePage(p).TotalItems(p.Context)
				},
			},
			"totalPages": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return sourcePage(p).TotalPages(p.Context)
				},
			},
		},
	})
}

var emptyPage = &pagination.Page[sqlstore.Row]{}

func sourcePage(p graphql.ResolveParams) *pagination.Page[sqlstore.Row] {
	if page, ok := p.Source.(*pagination.Page[sqlstore.Row]); ok && page != nil {
		return page
	}
	return emptyPage
}

func columnResolver(column string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		row, ok := p.Source.(sqlstore.Row)
		if !ok {
			return nil, nil
		}
		return row[column], nil
	}
}

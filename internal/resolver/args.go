package resolver

import (
	"fmt"

	"graphloader/internal/pagination"
	"graphloader/internal/relation"
)

// parseOptions turns the resolver arguments of one relation or root
// field into load options. Page and sort are optional; filter input is
// validated against the child entity's registered field set.
func (b *Builder) parseOptions(child *entityState, args map[string]interface{}) (relation.Options, error) {
	opts := relation.Options{Limits: b.limits, Hooks: b.hooks}

	if raw, ok := args["page"].(map[string]interface{}); ok {
		page := pagination.PageInput{}
		if n, ok := raw["number"].(int); ok {
			page.Number = n
		}
		if s, ok := raw["size"].(int); ok {
			page.Size = s
		}
		opts.Page = &page
	}

	if raw, ok := args["sort"].([]interface{}); ok {
		sort, err := parseSort(child, raw)
		if err != nil {
			return relation.Options{}, err
		}
		opts.Sort = sort
	}

	if raw, ok := args["filter"].(map[string]interface{}); ok {
		if child.fields == nil {
			return relation.Options{}, fmt.Errorf("%s does not accept a filter", child.def.Name)
		}
		filter, err := child.fields.Build(raw)
		if err != nil {
			return relation.Options{}, err
		}
		opts.Filter = filter
	}

	return opts, nil
}

func parseSort(child *entityState, raw []interface{}) (pagination.SortInput, error) {
	sort := make(pagination.SortInput, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		field, _ := entry["field"].(string)
		if _, known := child.columnSet[field]; !known {
			return nil, fmt.Errorf("%s: %q is not a sortable field", child.def.Name, field)
		}
		sorted := pagination.SortField{Field: field, Direction: pagination.Ascending}
		if dir, ok := entry["direction"].(string); ok {
			sorted.Direction = pagination.Direction(dir)
		}
		if nulls, ok := entry["nulls"].(string); ok {
			sorted.Nulls = pagination.NullsPosition(nulls)
		}
		sort = append(sort, sorted)
	}
	return sort, nil
}

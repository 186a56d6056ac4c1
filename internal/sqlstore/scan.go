package sqlstore

// scanRows reads every row into a column-keyed map. The driver hands
// MySQL text results back as []byte; those are normalized to string so
// callers compare and print values without caring about the wire type.
func scanRows(rows Rows, columns []string, extra ...string) ([]Row, error) {
	names := make([]string, 0, len(columns)+len(extra))
	names = append(names, columns...)
	names = append(names, extra...)

	var out []Row
	for rows.Next() {
		values := make([]any, len(names))
		dests := make([]any, len(names))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row := make(Row, len(names))
		for i, name := range names {
			row[name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

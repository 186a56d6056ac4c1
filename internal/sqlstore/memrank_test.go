package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphloader/internal/pagination"
)

func row(parent any, id int64, title any, views any) Row {
	return Row{ParentKeyAlias: parent, "id": id, "title": title, "views": views}
}

func TestRankInMemory(t *testing.T) {
	byTitle := pagination.SortInput{{Field: "title", Direction: pagination.Ascending}}

	t.Run("ranks each group independently", func(t *testing.T) {
		rows := []Row{
			row(1, 12, "c", 0),
			row(2, 20, "z", 0),
			row(1, 10, "a", 0),
			row(1, 11, "b", 0),
		}
		out := rankInMemory(rows, byTitle, 1, 2)
		require.Len(t, out, 3)
		assert.Equal(t, "a", out[0]["title"], "group 1 keeps its first two ranked rows")
		assert.Equal(t, "b", out[1]["title"])
		assert.Equal(t, "z", out[2]["title"], "group 2 has one row, within range")
	})

	t.Run("rank range past the group yields nothing", func(t *testing.T) {
		rows := []Row{row(1, 10, "a", 0), row(1, 11, "b", 0)}
		out := rankInMemory(rows, byTitle, 5, 8)
		assert.Empty(t, out)
	})

	t.Run("range is inclusive on both ends", func(t *testing.T) {
		rows := []Row{
			row(1, 10, "a", 0),
			row(1, 11, "b", 0),
			row(1, 12, "c", 0),
			row(1, 13, "d", 0),
		}
		out := rankInMemory(rows, byTitle, 2, 3)
		require.Len(t, out, 2)
		assert.Equal(t, "b", out[0]["title"])
		assert.Equal(t, "c", out[1]["title"])
	})

	t.Run("descending numeric sort", func(t *testing.T) {
		rows := []Row{
			row(1, 10, "a", int64(5)),
			row(1, 11, "b", int64(50)),
			row(1, 12, "c", int64(20)),
		}
		out := rankInMemory(rows, pagination.SortInput{
			{Field: "views", Direction: pagination.Descending},
		}, 1, 2)
		require.Len(t, out, 2)
		assert.Equal(t, "b", out[0]["title"])
		assert.Equal(t, "c", out[1]["title"])
	})

	t.Run("ties broken by a secondary field", func(t *testing.T) {
		rows := []Row{
			row(1, 12, "same", 0),
			row(1, 10, "same", 0),
			row(1, 11, "same", 0),
		}
		out := rankInMemory(rows, byTitle.WithTieBreaker("id"), 1, 3)
		require.Len(t, out, 3)
		assert.Equal(t, int64(10), out[0]["id"])
		assert.Equal(t, int64(11), out[1]["id"])
		assert.Equal(t, int64(12), out[2]["id"])
	})
}

func TestCompareFieldNulls(t *testing.T) {
	t.Run("default ascending puts nulls first", func(t *testing.T) {
		field := pagination.SortField{Field: "title", Direction: pagination.Ascending}
		assert.Negative(t, compareField(nil, "a", field))
		assert.Positive(t, compareField("a", nil, field))
	})

	t.Run("default descending puts nulls last", func(t *testing.T) {
		field := pagination.SortField{Field: "title", Direction: pagination.Descending}
		assert.Positive(t, compareField(nil, "a", field))
	})

	t.Run("explicit nulls last overrides direction", func(t *testing.T) {
		field := pagination.SortField{
			Field:     "title",
			Direction: pagination.Ascending,
			Nulls:     pagination.NullsLast,
		}
		assert.Positive(t, compareField(nil, "a", field))
		assert.Negative(t, compareField("a", nil, field))
	})

	t.Run("both null compare equal", func(t *testing.T) {
		field := pagination.SortField{Field: "title"}
		assert.Zero(t, compareField(nil, nil, field))
	})
}

func TestCompareValues(t *testing.T) {
	assert.Negative(t, compareValues(int64(1), int64(2)))
	assert.Negative(t, compareValues(int64(2), 2.5), "mixed numeric widths compare numerically")
	assert.Zero(t, compareValues("x", "x"))
	assert.Positive(t, compareValues(true, false))
	assert.Negative(t, compareValues("abc", "abd"))
}

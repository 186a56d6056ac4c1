package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortOrderClauses(t *testing.T) {
	t.Run("defaults to ascending", func(t *testing.T) {
		sort := SortInput{{Field: "name"}}
		assert.Equal(t, []string{"`name` ASC"}, sort.OrderClauses(""))
	})

	t.Run("explicit directions", func(t *testing.T) {
		sort := SortInput{
			{Field: "created_at", Direction: Descending},
			{Field: "id", Direction: Ascending},
		}
		assert.Equal(t, []string{"`created_at` DESC", "`id` ASC"}, sort.OrderClauses(""))
	})

	t.Run("nulls position emulated with is-null expression", func(t *testing.T) {
		sort := SortInput{{Field: "rating", Direction: Descending, Nulls: NullsLast}}
		assert.Equal(t, []string{"(`rating` IS NULL) ASC", "`rating` DESC"}, sort.OrderClauses(""))

		sort = SortInput{{Field: "rating", Nulls: NullsFirst}}
		assert.Equal(t, []string{"(`rating` IS NULL) DESC", "`rating` ASC"}, sort.OrderClauses(""))
	})

	t.Run("alias qualifies columns", func(t *testing.T) {
		sort := SortInput{{Field: "name"}}
		assert.Equal(t, []string{"`p`.`name` ASC"}, sort.OrderClauses("p"))
	})
}

func TestSortWithTieBreaker(t *testing.T) {
	t.Run("appends primary key", func(t *testing.T) {
		sort := SortInput{{Field: "name", Direction: Descending}}
		withTie := sort.WithTieBreaker("id")
		assert.Equal(t, SortInput{
			{Field: "name", Direction: Descending},
			{Field: "id", Direction: Ascending},
		}, withTie)
	})

	t.Run("does not duplicate an existing column", func(t *testing.T) {
		sort := SortInput{{Field: "id", Direction: Descending}}
		assert.Equal(t, sort, sort.WithTieBreaker("id"))
	})

	t.Run("does not mutate the receiver", func(t *testing.T) {
		sort := SortInput{{Field: "name"}}
		_ = sort.WithTieBreaker("id")
		assert.Len(t, sort, 1)
	})

	t.Run("empty sort becomes pure tie breaker", func(t *testing.T) {
		assert.Equal(t, SortInput{{Field: "id", Direction: Ascending}}, SortInput{}.WithTieBreaker("id"))
	})
}

func TestSortKey(t *testing.T) {
	assert.Equal(t, "sort=", SortInput{}.Key())
	sort := SortInput{
		{Field: "name", Direction: Descending, Nulls: NullsLast},
		{Field: "id", Direction: Ascending},
	}
	assert.Equal(t, "sort=name:DESC:LAST,id:ASC:", sort.Key())
}

package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	published := Leaf{Field: "published", Op: OpEq, Value: true}
	views := Leaf{Field: "views", Op: OpGte, Value: 10}

	t.Run("equal trees produce equal keys", func(t *testing.T) {
		assert.Equal(t, Key(And(published, views)), Key(And(published, views)))
	})

	t.Run("noop and nil share the empty key", func(t *testing.T) {
		assert.Equal(t, Key(nil), Key(Noop{}))
		assert.Equal(t, "filter=", Key(nil))
	})

	t.Run("structure distinguishes trees", func(t *testing.T) {
		assert.NotEqual(t, Key(And(published, views)), Key(Or(published, views)))
		assert.NotEqual(t, Key(published), Key(Not(published)))
		assert.NotEqual(t, Key(And(published, views)), Key(And(views, published)))
	})

	t.Run("list values are framed", func(t *testing.T) {
		in := Leaf{Field: "id", Op: OpIn, Value: []any{1, 2, 3}}
		assert.Equal(t, "filter=id:in:[1;2;3]", Key(in))
	})
}

package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"graphloader/internal/sqlstore"
)

func TestDescriptorFieldName(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want string
	}{
		{"one-to-many pluralizes", Descriptor{Kind: OneToMany, Table: "posts"}, "posts"},
		{"many-to-many pluralizes", Descriptor{Kind: ManyToMany, Table: "tags"}, "tags"},
		{"many-to-one singularizes", Descriptor{Kind: ManyToOne, Table: "users"}, "user"},
		{"one-to-one singularizes", Descriptor{Kind: OneToOne, Table: "profiles"}, "profile"},
		{"irregular nouns", Descriptor{Kind: OneToMany, Table: "categories"}, "categories"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.desc.FieldName())
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	valid := Descriptor{
		Kind:       OneToMany,
		Table:      "posts",
		Columns:    []string{"id", "title"},
		ForeignKey: "author_id",
	}
	assert.NoError(t, valid.Validate())

	t.Run("unknown kind", func(t *testing.T) {
		d := valid
		d.Kind = "owns"
		assert.ErrorContains(t, d.Validate(), "unknown kind")
	})

	t.Run("missing table", func(t *testing.T) {
		d := valid
		d.Table = ""
		assert.ErrorContains(t, d.Validate(), "child table")
	})

	t.Run("missing columns", func(t *testing.T) {
		d := valid
		d.Columns = nil
		assert.ErrorContains(t, d.Validate(), "column selection")
	})

	t.Run("missing foreign key", func(t *testing.T) {
		d := valid
		d.ForeignKey = ""
		assert.ErrorContains(t, d.Validate(), "foreign key")
	})

	t.Run("many-to-many requires junction", func(t *testing.T) {
		d := valid
		d.Kind = ManyToMany
		assert.ErrorContains(t, d.Validate(), "junction")

		d.Junction = &sqlstore.JoinSpec{Table: "post_tags"}
		assert.NoError(t, d.Validate())
	})

	t.Run("junction rejected elsewhere", func(t *testing.T) {
		d := valid
		d.Junction = &sqlstore.JoinSpec{Table: "post_tags"}
		assert.ErrorContains(t, d.Validate(), "only valid for many-to-many")
	})
}

func TestDescriptorKeyColumn(t *testing.T) {
	t.Run("many-to-one matches on the child primary key", func(t *testing.T) {
		d := Descriptor{Kind: ManyToOne, Table: "users", ForeignKey: "author_id"}
		assert.Equal(t, "id", d.keyColumn())
	})

	t.Run("one-to-one matches on the child foreign key", func(t *testing.T) {
		d := Descriptor{Kind: OneToOne, Table: "profiles", ForeignKey: "user_id"}
		assert.Equal(t, "user_id", d.keyColumn())
	})
}

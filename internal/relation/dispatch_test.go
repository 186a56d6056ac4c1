package relation

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphloader/internal/loader"
	"graphloader/internal/pagination"
	"graphloader/internal/sqlstore"
)

var postsDesc = Descriptor{
	Kind:       OneToMany,
	Table:      "posts",
	Columns:    []string{"id", "title"},
	ForeignKey: "author_id",
}

var authorDesc = Descriptor{
	Kind:       ManyToOne,
	Table:      "users",
	Columns:    []string{"id", "name"},
	ForeignKey: "author_id",
}

func newMockStore(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlstore.New(sqlstore.NewDBExecutor(db)), mock
}

func TestGroupLoaderWindowedPages(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, mock := newMockStore(t)

	// Three parents with 5, 0, and 12 children and a page size of 10:
	// one query returns ranks 1..11 per parent, and each parent gets its
	// own page with the peek row trimmed.
	expected := "SELECT `id`, `title`, __parent_key " +
		"FROM (SELECT `id`, `title`, `author_id` AS __parent_key, " +
		"ROW_NUMBER() OVER (PARTITION BY `author_id` ORDER BY `id` ASC) AS __rn " +
		"FROM `posts` WHERE `author_id` IN (?,?,?)) AS __window " +
		"WHERE __rn >= ? AND __rn <= ? ORDER BY __parent_key, __rn"
	rows := sqlmock.NewRows([]string{"id", "title", sqlstore.ParentKeyAlias})
	for i := 0; i < 5; i++ {
		rows.AddRow(int64(100+i), "a-post", int64(1))
	}
	for i := 0; i < 11; i++ {
		rows.AddRow(int64(300+i), "c-post", int64(3))
	}
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(1), int64(2), int64(3), 1, 11).
		WillReturnRows(rows)

	g, err := Group(ctx, store, postsDesc, Options{})
	require.NoError(t, err)

	sparse := g.Load(ctx, int64(1))
	empty := g.Load(ctx, int64(2))
	overfull := g.Load(ctx, int64(3))

	pageA, err := sparse.Value(ctx)
	require.NoError(t, err)
	assert.Len(t, pageA.Items, 5)
	assert.False(t, pageA.HasNext)
	assert.False(t, pageA.HasPrevious)

	pageB, err := empty.Value(ctx)
	require.NoError(t, err)
	assert.Empty(t, pageB.Items)
	assert.False(t, pageB.HasNext)

	pageC, err := overfull.Value(ctx)
	require.NoError(t, err)
	assert.Len(t, pageC.Items, 10, "peek row trimmed from the full group")
	assert.True(t, pageC.HasNext)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupLoaderSecondPage(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, mock := newMockStore(t)

	expected := "WHERE `author_id` IN (?)) AS __window WHERE __rn >= ? AND __rn <= ?"
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(1), 11, 21).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", sqlstore.ParentKeyAlias}).
			AddRow(int64(111), "eleventh", int64(1)))

	g, err := Group(ctx, store, postsDesc, Options{Page: &pagination.PageInput{Number: 2, Size: 10}})
	require.NoError(t, err)

	page, err := g.Load(ctx, int64(1)).Value(ctx)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)
	assert.Equal(t, 2, page.Number)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupLoaderLazyTotals(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM \\(SELECT (.+)\\) AS __window").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", sqlstore.ParentKeyAlias}).
			AddRow(int64(100), "only", int64(1)))

	g, err := Group(ctx, store, postsDesc, Options{})
	require.NoError(t, err)
	page, err := g.Load(ctx, int64(1)).Value(ctx)
	require.NoError(t, err)

	// The count query is issued only once totals are asked for.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `posts` WHERE `posts`.`author_id` = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	total, err := page.TotalItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	again, err := page.TotalItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again, "second access served from the memoized total")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRowLoaderManyToOne(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name` FROM `users` WHERE `id` IN (?,?)")).
		WithArgs(int64(7), int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(7), "ada"))

	r, err := One(ctx, store, authorDesc, Options{})
	require.NoError(t, err)

	found := r.Load(ctx, int64(7))
	missing := r.Load(ctx, int64(8))

	row, err := found.Value(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada", row["name"])

	row, err = missing.Value(ctx)
	require.NoError(t, err, "absent parent resolves to a nil row, not an error")
	assert.Nil(t, row)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRowLoaderResolveClosure(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	r, err := One(ctx, store, authorDesc, Options{})
	require.NoError(t, err)

	deferred := r.Resolve(ctx, int64(9))
	value, err := deferred()
	require.NoError(t, err)
	assert.Nil(t, value, "missing row surfaces as an untyped nil for the engine")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchSharing(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, _ := newMockStore(t)

	_, err := Group(ctx, store, postsDesc, Options{})
	require.NoError(t, err)
	_, err = Group(ctx, store, postsDesc, Options{})
	require.NoError(t, err)

	registry, ok := loader.ScopeFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, registry.Len(), "identical configuration shares one loader")

	_, err = Group(ctx, store, postsDesc, Options{Page: &pagination.PageInput{Number: 2, Size: 10}})
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len(), "a different page gets its own bucket")

	_, err = One(ctx, store, authorDesc, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, registry.Len())
}

func TestDispatchSelectionIdentity(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, _ := newMockStore(t)

	registry, ok := loader.ScopeFrom(ctx)
	require.True(t, ok)

	_, err := Group(ctx, store, postsDesc, Options{})
	require.NoError(t, err)

	wide := postsDesc
	wide.Columns = []string{"id", "title", "body"}
	_, err = Group(ctx, store, wide, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len(), "a different column selection gets its own bucket")

	viaEditor := postsDesc
	viaEditor.ForeignKey = "editor_id"
	_, err = Group(ctx, store, viaEditor, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, registry.Len(), "a different linking key gets its own bucket")

	narrowAuthor := authorDesc
	narrowAuthor.Columns = []string{"id"}
	_, err = One(ctx, store, authorDesc, Options{})
	require.NoError(t, err)
	_, err = One(ctx, store, narrowAuthor, Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, registry.Len(), "to-one loaders split on column selection too")
}

func TestDispatchKinds(t *testing.T) {
	ctx := loader.NewScope(context.Background())
	store, _ := newMockStore(t)

	t.Run("list kind dispatches to the group loader", func(t *testing.T) {
		l, err := Dispatch(ctx, store, postsDesc, Options{})
		require.NoError(t, err)
		assert.IsType(t, &GroupLoader{}, l)
	})

	t.Run("to-one kind dispatches to the row loader", func(t *testing.T) {
		l, err := Dispatch(ctx, store, authorDesc, Options{})
		require.NoError(t, err)
		assert.IsType(t, &RowLoader{}, l)
	})

	t.Run("kind mismatch rejected", func(t *testing.T) {
		_, err := One(ctx, store, postsDesc, Options{})
		assert.ErrorContains(t, err, "not a to-one kind")
		_, err = Group(ctx, store, authorDesc, Options{})
		assert.ErrorContains(t, err, "not a list kind")
	})
}

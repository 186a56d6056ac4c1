package sqlstore

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphloader/internal/pagination"
	"graphloader/internal/predicate"
)

func TestFetchByKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expected := "SELECT `id`, `name` FROM `users` WHERE `id` IN (?,?,?)"
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(1), int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("ada")).
			AddRow(int64(2), []byte("grace")).
			AddRow(int64(3), []byte("alan")))

	store := New(NewDBExecutor(db))
	rows, err := store.FetchByKeys(
		context.Background(),
		"users", []string{"id", "name"}, "id",
		[]any{int64(1), int64(2), int64(3)},
		nil, nil,
	)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ada", rows[0]["name"], "byte columns normalized to string")
	assert.Equal(t, int64(2), rows[1]["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchByKeysEmpty(t *testing.T) {
	store := New(NewDBExecutor(nil))
	rows, err := store.FetchByKeys(context.Background(), "users", []string{"id"}, "id", nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchByKeysWithFilterAndSort(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fields := predicate.NewFieldSet("id", "name", "active")
	fields.MustRegister("active", "active", predicate.OpEq)
	filter, err := fields.Build(map[string]any{"active": true})
	require.NoError(t, err)

	expected := "SELECT `id`, `name` FROM `users` WHERE `id` IN (?,?) AND `active` = ? ORDER BY `name` ASC"
	mock.ExpectQuery(regexp.QuoteMeta(expected)).
		WithArgs(int64(1), int64(2), true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	store := New(NewDBExecutor(db))
	_, err = store.FetchByKeys(
		context.Background(),
		"users", []string{"id", "name"}, "id",
		[]any{int64(1), int64(2)},
		filter,
		pagination.SortInput{{Field: "name", Direction: pagination.Ascending}},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchByKeysChunksLargeBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` FROM `users` WHERE `id` IN (?,?)")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` FROM `users` WHERE `id` IN (?)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	store := New(NewDBExecutor(db), WithMaxInClause(2))
	rows, err := store.FetchByKeys(
		context.Background(),
		"users", []string{"id"}, "id",
		[]any{int64(1), int64(2), int64(3)},
		nil, nil,
	)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountForParent(t *testing.T) {
	t.Run("direct foreign key", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expected := "SELECT COUNT(*) FROM `posts` WHERE `posts`.`author_id` = ?"
		mock.ExpectQuery(regexp.QuoteMeta(expected)).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(12))

		store := New(NewDBExecutor(db))
		count, err := store.CountForParent(context.Background(), "posts", "author_id", int64(5), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 12, count)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("through a junction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expected := "SELECT COUNT(*) FROM `tags` INNER JOIN `post_tags` ON " +
			"`post_tags`.`tag_id` = `tags`.`id` WHERE `post_tags`.`post_id` = ?"
		mock.ExpectQuery(regexp.QuoteMeta(expected)).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))

		store := New(NewDBExecutor(db))
		join := &JoinSpec{
			Table:           "post_tags",
			ParentKeyColumn: "post_id",
			ChildKeyColumn:  "tag_id",
			TargetKeyColumn: "id",
		}
		count, err := store.CountForParent(context.Background(), "tags", "", int64(9), join, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestChunkKeys(t *testing.T) {
	keys := []any{1, 2, 3, 4, 5}
	chunks := chunkKeys(keys, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []any{1, 2}, chunks[0])
	assert.Equal(t, []any{3, 4}, chunks[1])
	assert.Equal(t, []any{5}, chunks[2])

	assert.Equal(t, [][]any{keys}, chunkKeys(keys, 10), "batch within bound stays whole")
}

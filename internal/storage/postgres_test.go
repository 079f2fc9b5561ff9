package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ainews/internal/news"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestUpsertRecords(t *testing.T) {
	store, mock := newMockStore(t)
	date := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO news_items").
		WithArgs("http://x.test/1", "some text", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "body", "tags", "published_at"}).
			AddRow(int64(7), "http://x.test/1", "some text", []byte("{}"), date))

	items, err := store.UpsertRecords(context.Background(), []news.Record{
		{Text: "some text", URL: "http://x.test/1", Date: &date},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, int64(7), items[0].ID)
	assert.Equal(t, "http://x.test/1", items[0].URL)
	assert.Equal(t, "some text", items[0].Body)
	assert.Equal(t, []string{}, items[0].Tags)
	require.NotNil(t, items[0].PublishedAt)
	assert.True(t, items[0].PublishedAt.Equal(date))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRecords_NilDate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO news_items").
		WithArgs("http://x.test/2", "undated", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "body", "tags", "published_at"}).
			AddRow(int64(8), "http://x.test/2", "undated", []byte("{}"), nil))

	items, err := store.UpsertRecords(context.Background(), []news.Record{
		{Text: "undated", URL: "http://x.test/2"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].PublishedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndGetUser(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("a@b.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "created_at"}).
			AddRow(int64(1), "a@b.test", created))

	email := "a@b.test"
	u, err := store.CreateUser(context.Background(), &email)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	require.NotNil(t, u.Email)
	assert.Equal(t, "a@b.test", *u.Email)

	mock.ExpectQuery("SELECT id, email, created_at FROM users").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err = store.GetUser(context.Background(), 9)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetTags(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_tags").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_tags").
		WithArgs(int64(3), "ai").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_tags").
		WithArgs(int64(3), "robotics").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SetTags(context.Background(), 3, []string{"ai", "robotics"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSeen(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO user_seen_news").
		WithArgs(int64(3), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkSeen(context.Background(), 3, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFeed(t *testing.T) {
	store, mock := newMockStore(t)
	date := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT n.id, n.url, n.body, n.tags, n.published_at").
		WithArgs(int64(3), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "url", "body", "tags", "published_at"}).
			AddRow(int64(1), "http://x.test/1", "dated first", []byte(`{ai}`), date).
			AddRow(int64(2), "http://x.test/2", "undated last", []byte("{}"), nil))

	items, err := store.UserFeed(context.Background(), 3, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"ai"}, items[0].Tags)
	assert.Nil(t, items[1].PublishedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

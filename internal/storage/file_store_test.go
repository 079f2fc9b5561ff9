package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ainews/internal/news"
)

func TestFileStore_UpsertByURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	fs, err := OpenFile(path)
	require.NoError(t, err)

	date := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	first, err := fs.UpsertRecords(context.Background(), []news.Record{
		{Text: "original", URL: "http://x.test/1", Date: &date},
		{Text: "other", URL: "http://x.test/2"},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(1), first[0].ID)
	assert.Equal(t, int64(2), first[1].ID)

	// Same url again: body updated, identity and date preserved.
	second, err := fs.UpsertRecords(context.Background(), []news.Record{
		{Text: "updated", URL: "http://x.test/1"},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int64(1), second[0].ID)
	assert.Equal(t, "updated", second[0].Body)
	require.NotNil(t, second[0].PublishedAt)
	assert.True(t, second[0].PublishedAt.Equal(date))
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := OpenFile(path)
	require.NoError(t, err)
	_, err = fs.UpsertRecords(context.Background(), []news.Record{
		{Text: "hello", URL: "http://x.test/1"},
	})
	require.NoError(t, err)

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	items, err := reopened.UpsertRecords(context.Background(), []news.Record{
		{Text: "brand new", URL: "http://x.test/3"},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	// IDs continue after the loaded ones.
	assert.Equal(t, int64(2), items[0].ID)
}

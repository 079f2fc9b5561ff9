package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ainews/internal/news"
	"ainews/internal/storage"
)

type fakeStore struct {
	users    map[int64]storage.User
	tags     map[int64][]string
	seen     map[int64][]int64
	upserted []news.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]storage.User{},
		tags:  map[int64][]string{},
		seen:  map[int64][]int64{},
	}
}

func (f *fakeStore) UpsertRecords(_ context.Context, records []news.Record) ([]storage.NewsItem, error) {
	f.upserted = append(f.upserted, records...)
	items := make([]storage.NewsItem, 0, len(records))
	for i, r := range records {
		items = append(items, storage.NewsItem{
			ID: int64(i + 1), URL: r.URL, Body: r.Text, Tags: []string{}, PublishedAt: r.Date,
		})
	}
	return items, nil
}

func (f *fakeStore) CreateUser(_ context.Context, email *string) (storage.User, error) {
	u := storage.User{ID: int64(len(f.users) + 1), Email: email, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (storage.User, error) {
	u, ok := f.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetTags(_ context.Context, userID int64) ([]string, error) {
	return f.tags[userID], nil
}

func (f *fakeStore) SetTags(_ context.Context, userID int64, tags []string) error {
	f.tags[userID] = tags
	return nil
}

func (f *fakeStore) MarkSeen(_ context.Context, userID, newsID int64) error {
	f.seen[userID] = append(f.seen[userID], newsID)
	return nil
}

func (f *fakeStore) UserFeed(_ context.Context, userID int64, limit int) ([]storage.NewsItem, error) {
	return []storage.NewsItem{}, nil
}

type fakeRunner struct {
	records []news.Record
	runs    int
}

func (f *fakeRunner) Run(_ context.Context) []news.Record {
	f.runs++
	return f.records
}

func newTestRouter(store *fakeStore, runner *fakeRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, NewHandler(store, runner, "s3cret"))
	return router
}

func TestRunEndpoint_RequiresAPIKey(t *testing.T) {
	store := newFakeStore()
	runner := &fakeRunner{}
	router := newTestRouter(store, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, runner.runs)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("X-API-Key", "wrong")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, runner.runs)
}

func TestRunEndpoint_UpsertsRecords(t *testing.T) {
	date := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	store := newFakeStore()
	runner := &fakeRunner{records: []news.Record{
		{Text: "hello", URL: "http://x.test/1", Date: &date},
	}}
	router := newTestRouter(store, runner)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("X-API-Key", "s3cret")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, runner.runs)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "http://x.test/1", store.upserted[0].URL)
	assert.Contains(t, w.Body.String(), `"items"`)
}

func TestUserLifecycle(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store, &fakeRunner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"email":"a@b.test"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/users/1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/users/404", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/users/abc", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetTags_NormalizesInput(t *testing.T) {
	store := newFakeStore()
	store.users[1] = storage.User{ID: 1}
	router := newTestRouter(store, &fakeRunner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/1/tags",
		strings.NewReader(`{"tags":["  AI ","Robotics","","ml"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ai", "robotics", "ml"}, store.tags[1])
}

func TestMarkSeen(t *testing.T) {
	store := newFakeStore()
	store.users[1] = storage.User{ID: 1}
	router := newTestRouter(store, &fakeRunner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/1/seen", strings.NewReader(`{"news_id":7}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{7}, store.seen[1])
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newFakeStore(), &fakeRunner{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, w.Code)
}

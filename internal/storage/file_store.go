package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"ainews/internal/news"
)

// FileStore keeps news items in a JSON file for runs without a database.
// Same upsert-by-url contract as the Postgres store; no user accounts.
type FileStore struct {
	path   string
	mu     sync.Mutex
	items  map[string]NewsItem // keyed by url
	nextID int64
}

// OpenFile loads an existing store file, or starts empty when it is missing.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		items:  make(map[string]NewsItem),
		nextID: 1,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(data) == 0 {
		return fs, nil
	}

	var items []NewsItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	for _, it := range items {
		fs.items[it.URL] = it
		if it.ID >= fs.nextID {
			fs.nextID = it.ID + 1
		}
	}
	return fs, nil
}

func (fs *FileStore) UpsertRecords(ctx context.Context, records []news.Record) ([]NewsItem, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	stored := make([]NewsItem, 0, len(records))
	for _, r := range records {
		it, ok := fs.items[r.URL]
		if !ok {
			it = NewsItem{ID: fs.nextID, URL: r.URL, Tags: []string{}}
			fs.nextID++
		}
		it.Body = r.Text
		if r.Date != nil {
			it.PublishedAt = r.Date
		}
		fs.items[r.URL] = it
		stored = append(stored, it)
	}

	return stored, fs.save()
}

func (fs *FileStore) save() error {
	items := make([]NewsItem, 0, len(fs.items))
	for _, it := range fs.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return nil
}

func (fs *FileStore) Close() error {
	return nil
}

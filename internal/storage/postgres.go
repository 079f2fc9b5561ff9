package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ainews/internal/logger"
	"ainews/internal/news"
	"ainews/internal/retry"
)

// NewsItem is a stored pipeline record plus its tag set.
type NewsItem struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Body        string     `json:"body"`
	Tags        []string   `json:"tags"`
	PublishedAt *time.Time `json:"published_at"`
}

// User is an account that owns tag preferences and seen-marks.
type User struct {
	ID        int64     `json:"id"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordStore accepts pipeline output. The contract with the pipeline is
// upsert-by-url: an existing record gets its text and date updated, a new
// one is created with an empty tag set.
type RecordStore interface {
	UpsertRecords(ctx context.Context, records []news.Record) ([]NewsItem, error)
	Close() error
}

// PostgresStore persists news items, users, tags and seen-marks.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing database handle (used by tests).
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects, pings with a short retry and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	policy := retry.Policy{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}
	if err := retry.WithRetry(ctx, policy, func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("postgres store connected")
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS user_tags (
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		PRIMARY KEY (user_id, tag)
	);

	CREATE TABLE IF NOT EXISTS news_items (
		id BIGSERIAL PRIMARY KEY,
		url TEXT UNIQUE NOT NULL,
		body TEXT,
		tags TEXT[] NOT NULL DEFAULT '{}',
		published_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_news_items_url ON news_items(url);
	CREATE INDEX IF NOT EXISTS idx_news_items_published_at ON news_items(published_at);

	CREATE TABLE IF NOT EXISTS user_seen_news (
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		news_id BIGINT NOT NULL REFERENCES news_items(id) ON DELETE CASCADE,
		seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, news_id)
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertRecords stores one pipeline run. Ordered like the input; rows keep
// their identity by url across runs.
func (s *PostgresStore) UpsertRecords(ctx context.Context, records []news.Record) ([]NewsItem, error) {
	query := `
		INSERT INTO news_items (url, body, published_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO UPDATE SET
			body = EXCLUDED.body,
			published_at = COALESCE(EXCLUDED.published_at, news_items.published_at)
		RETURNING id, url, body, tags, published_at
	`

	stored := make([]NewsItem, 0, len(records))
	for _, r := range records {
		var it NewsItem
		var publishedAt sql.NullTime
		if r.Date != nil {
			publishedAt = sql.NullTime{Time: *r.Date, Valid: true}
		}

		row := s.db.QueryRowContext(ctx, query, r.URL, r.Text, publishedAt)
		var storedAt sql.NullTime
		if err := row.Scan(&it.ID, &it.URL, &it.Body, pq.Array(&it.Tags), &storedAt); err != nil {
			return stored, fmt.Errorf("upsert %s: %w", r.URL, err)
		}
		if storedAt.Valid {
			t := storedAt.Time
			it.PublishedAt = &t
		}
		if it.Tags == nil {
			it.Tags = []string{}
		}
		stored = append(stored, it)
	}
	return stored, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, email *string) (User, error) {
	var u User
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING id, email, created_at`, email)
	if err := row.Scan(&u.ID, &u.Email, &u.CreatedAt); err != nil {
		return u, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ErrNotFound reports a missing row to the API layer.
var ErrNotFound = sql.ErrNoRows

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = $1`, id)
	if err := row.Scan(&u.ID, &u.Email, &u.CreatedAt); err != nil {
		return u, err
	}
	return u, nil
}

func (s *PostgresStore) GetTags(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM user_tags WHERE user_id = $1 ORDER BY tag`, userID)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// SetTags replaces the user's tag set.
func (s *PostgresStore) SetTags(ctx context.Context, userID int64, tags []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_tags WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_tags (user_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) MarkSeen(ctx context.Context, userID, newsID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_seen_news (user_id, news_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, newsID)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// UserFeed returns unseen items, newest first (undated last), filtered to the
// user's tags when the user has any.
func (s *PostgresStore) UserFeed(ctx context.Context, userID int64, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT n.id, n.url, n.body, n.tags, n.published_at
		FROM news_items n
		WHERE NOT EXISTS (
			SELECT 1 FROM user_seen_news s WHERE s.user_id = $1 AND s.news_id = n.id
		)
		AND (
			NOT EXISTS (SELECT 1 FROM user_tags t WHERE t.user_id = $1)
			OR n.tags && (SELECT COALESCE(array_agg(tag), '{}') FROM user_tags WHERE user_id = $1)
		)
		ORDER BY n.published_at DESC NULLS LAST
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("user feed: %w", err)
	}
	defer rows.Close()

	items := []NewsItem{}
	for rows.Next() {
		var it NewsItem
		var publishedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.URL, &it.Body, pq.Array(&it.Tags), &publishedAt); err != nil {
			return nil, err
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			it.PublishedAt = &t
		}
		if it.Tags == nil {
			it.Tags = []string{}
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Package database provides SQLite storage for stories.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryan-buckman/inkwell/internal/model"
	_ "modernc.org/sqlite"
)

// Timestamps are stored as fixed-width UTC text so that ORDER BY on the
// column sorts chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps the per-connection pragmas in effect and
	// serializes writers.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	for _, pragma := range sqlitePragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// SupportsHighConcurrency returns false for SQLite.
func (db *DB) SupportsHighConcurrency() bool {
	return false
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		cover_image TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories(created_at DESC);
	`
	_, err := db.conn.Exec(schema)
	return err
}

const sqliteStoryColumns = "id, title, content, cover_image, created_at, updated_at"

// --- Story Methods ---

// ListStories returns every story, newest first.
func (db *DB) ListStories(ctx context.Context) ([]model.Story, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+sqliteStoryColumns+" FROM stories ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stories := []model.Story{}
	for rows.Next() {
		s, err := scanSQLiteStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *s)
	}
	return stories, rows.Err()
}

// GetStory returns the story with the given id.
func (db *DB) GetStory(ctx context.Context, id string) (*model.Story, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+sqliteStoryColumns+" FROM stories WHERE id = ?", id)
	return scanSQLiteStory(row)
}

// CreateStory inserts a story and returns the stored row.
func (db *DB) CreateStory(ctx context.Context, s model.NewStory) (*model.Story, error) {
	now := db.now().UTC().Format(sqliteTimeLayout)
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO stories (title, content, cover_image, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING "+sqliteStoryColumns,
		s.Title, s.Content, s.CoverImage, now, now)
	return scanSQLiteStory(row)
}

// UpdateStory overwrites the fields set in p and keeps the others.
func (db *DB) UpdateStory(ctx context.Context, id string, p model.StoryPatch) (*model.Story, error) {
	row := db.conn.QueryRowContext(ctx, `
		UPDATE stories
		SET title = COALESCE(?, title),
			content = COALESCE(?, content),
			cover_image = COALESCE(?, cover_image)
		WHERE id = ?
		RETURNING `+sqliteStoryColumns,
		p.Title, p.Content, p.CoverImage, id)
	return scanSQLiteStory(row)
}

// DeleteStory removes a story and returns what was removed.
func (db *DB) DeleteStory(ctx context.Context, id string) (*model.Story, error) {
	row := db.conn.QueryRowContext(ctx,
		"DELETE FROM stories WHERE id = ? RETURNING "+sqliteStoryColumns, id)
	return scanSQLiteStory(row)
}

// StoryTitleExists reports whether a story with exactly this title exists.
func (db *DB) StoryTitleExists(ctx context.Context, title string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, "SELECT 1 FROM stories WHERE title = ? LIMIT 1", title).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// --- Helper functions ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteStory(row rowScanner) (*model.Story, error) {
	var s model.Story
	var cover sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&s.ID, &s.Title, &s.Content, &cover, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cover.Valid {
		s.CoverImage = &cover.String
	}
	if s.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if s.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return &s, nil
}

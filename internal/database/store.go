// Package database provides storage backends for stories.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bryan-buckman/inkwell/internal/model"
)

// ErrNotFound is returned when no story matches the given identifier.
var ErrNotFound = errors.New("story not found")

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
//
// Identifiers are passed through as given by the caller. A value the backend
// cannot compare against the key column either matches nothing (ErrNotFound)
// or fails the query, depending on the backend.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	// SQLite returns false due to write locking limitations.
	SupportsHighConcurrency() bool

	Ping(ctx context.Context) error

	// Story operations
	ListStories(ctx context.Context) ([]model.Story, error)
	GetStory(ctx context.Context, id string) (*model.Story, error)
	CreateStory(ctx context.Context, s model.NewStory) (*model.Story, error)
	UpdateStory(ctx context.Context, id string, p model.StoryPatch) (*model.Story, error)
	DeleteStory(ctx context.Context, id string) (*model.Story, error)
	StoryTitleExists(ctx context.Context, title string) (bool, error)
}

// Open picks a backend from the connection string.
//
//	postgres://... | postgresql://... | host=... dbname=...  -> PostgreSQL
//	sqlite://path | file:path | path                         -> SQLite
//
// useSSL only affects PostgreSQL URLs that do not set sslmode themselves.
func Open(dsn string, useSSL bool) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, errors.New("empty database connection string")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		connStr, err := withSSLMode(dsn, useSSL)
		if err != nil {
			return nil, err
		}
		return NewPostgres(connStr)
	case strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname="):
		if !strings.Contains(dsn, "sslmode=") {
			dsn += " sslmode=" + sslMode(useSSL)
		}
		return NewPostgres(dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return New(strings.TrimPrefix(dsn, "sqlite://"))
	default:
		return New(strings.TrimPrefix(dsn, "file:"))
	}
}

func sslMode(useSSL bool) string {
	if useSSL {
		// Managed providers hand out certificates we do not verify.
		return "require"
	}
	return "disable"
}

func withSSLMode(rawURL string, useSSL bool) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", sslMode(useSSL))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

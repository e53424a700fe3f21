package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/bryan-buckman/inkwell/internal/model"
)

func strPtr(s string) *string { return &s }

func newTestSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "stories.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return newTestSQLite(t) })
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("INKWELL_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("INKWELL_TEST_POSTGRES_URL not set")
	}
	runStoreSuite(t, func(t *testing.T) Store {
		db, err := NewPostgres(dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if _, err := db.conn.Exec("TRUNCATE stories RESTART IDENTITY"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	})
}

func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty list is not nil", func(t *testing.T) {
		store := open(t)
		stories, err := store.ListStories(ctx)
		if err != nil {
			t.Fatalf("ListStories: %v", err)
		}
		if stories == nil || len(stories) != 0 {
			t.Fatalf("stories = %#v, want empty slice", stories)
		}
	})

	t.Run("create assigns ids and list is newest first", func(t *testing.T) {
		store := open(t)
		var created []*model.Story
		for i := 0; i < 5; i++ {
			s, err := store.CreateStory(ctx, model.NewStory{Title: "t" + strconv.Itoa(i), Content: "c"})
			if err != nil {
				t.Fatalf("CreateStory: %v", err)
			}
			for _, prev := range created {
				if prev.ID == s.ID {
					t.Fatalf("duplicate id %d", s.ID)
				}
				if !prev.CreatedAt.Before(s.CreatedAt) {
					t.Fatalf("created_at %v not after %v", s.CreatedAt, prev.CreatedAt)
				}
			}
			created = append(created, s)
		}

		stories, err := store.ListStories(ctx)
		if err != nil {
			t.Fatalf("ListStories: %v", err)
		}
		if len(stories) != len(created) {
			t.Fatalf("len = %d, want %d", len(stories), len(created))
		}
		for i := range stories {
			want := created[len(created)-1-i]
			if stories[i].ID != want.ID {
				t.Fatalf("stories[%d].ID = %d, want %d", i, stories[i].ID, want.ID)
			}
			if i > 0 && !stories[i].CreatedAt.Before(stories[i-1].CreatedAt) {
				t.Fatalf("list not strictly descending at %d", i)
			}
		}
	})

	t.Run("get round trip", func(t *testing.T) {
		store := open(t)
		s, err := store.CreateStory(ctx, model.NewStory{Title: "A", Content: "B", CoverImage: strPtr("http://x/c.png")})
		if err != nil {
			t.Fatalf("CreateStory: %v", err)
		}
		got, err := store.GetStory(ctx, strconv.FormatInt(s.ID, 10))
		if err != nil {
			t.Fatalf("GetStory: %v", err)
		}
		if got.Title != "A" || got.Content != "B" || got.CoverImage == nil || *got.CoverImage != "http://x/c.png" {
			t.Fatalf("got %+v", got)
		}
		if !got.CreatedAt.Equal(s.CreatedAt) {
			t.Fatalf("created_at = %v, want %v", got.CreatedAt, s.CreatedAt)
		}
	})

	t.Run("nil cover stays null", func(t *testing.T) {
		store := open(t)
		s, err := store.CreateStory(ctx, model.NewStory{Title: "A", Content: "B"})
		if err != nil {
			t.Fatalf("CreateStory: %v", err)
		}
		if s.CoverImage != nil {
			t.Fatalf("cover = %q, want nil", *s.CoverImage)
		}
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		store := open(t)
		s, err := store.CreateStory(ctx, model.NewStory{Title: "old", Content: "body", CoverImage: strPtr("c.png")})
		if err != nil {
			t.Fatalf("CreateStory: %v", err)
		}
		id := strconv.FormatInt(s.ID, 10)
		got, err := store.UpdateStory(ctx, id, model.StoryPatch{Title: strPtr("X")})
		if err != nil {
			t.Fatalf("UpdateStory: %v", err)
		}
		if got.Title != "X" || got.Content != "body" || got.CoverImage == nil || *got.CoverImage != "c.png" {
			t.Fatalf("got %+v", got)
		}
		if !got.UpdatedAt.Equal(s.UpdatedAt) {
			t.Fatalf("updated_at changed: %v -> %v", s.UpdatedAt, got.UpdatedAt)
		}

		got, err = store.UpdateStory(ctx, id, model.StoryPatch{CoverImage: strPtr("d.png")})
		if err != nil {
			t.Fatalf("UpdateStory: %v", err)
		}
		if got.Title != "X" || got.Content != "body" || *got.CoverImage != "d.png" {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("missing id is not found and mutates nothing", func(t *testing.T) {
		store := open(t)
		s, err := store.CreateStory(ctx, model.NewStory{Title: "keep", Content: "me"})
		if err != nil {
			t.Fatalf("CreateStory: %v", err)
		}
		missing := strconv.FormatInt(s.ID+1000, 10)

		if _, err := store.GetStory(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetStory err = %v, want ErrNotFound", err)
		}
		if _, err := store.UpdateStory(ctx, missing, model.StoryPatch{Title: strPtr("nope")}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdateStory err = %v, want ErrNotFound", err)
		}
		if _, err := store.DeleteStory(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Fatalf("DeleteStory err = %v, want ErrNotFound", err)
		}

		stories, err := store.ListStories(ctx)
		if err != nil {
			t.Fatalf("ListStories: %v", err)
		}
		if len(stories) != 1 || stories[0].Title != "keep" {
			t.Fatalf("stories = %+v", stories)
		}
	})

	t.Run("delete removes the row", func(t *testing.T) {
		store := open(t)
		s, err := store.CreateStory(ctx, model.NewStory{Title: "gone", Content: "soon"})
		if err != nil {
			t.Fatalf("CreateStory: %v", err)
		}
		id := strconv.FormatInt(s.ID, 10)
		deleted, err := store.DeleteStory(ctx, id)
		if err != nil {
			t.Fatalf("DeleteStory: %v", err)
		}
		if deleted.ID != s.ID || deleted.Title != "gone" {
			t.Fatalf("deleted = %+v", deleted)
		}
		if _, err := store.GetStory(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetStory after delete err = %v", err)
		}
		stories, _ := store.ListStories(ctx)
		if len(stories) != 0 {
			t.Fatalf("len = %d after delete", len(stories))
		}
	})

	t.Run("title exists", func(t *testing.T) {
		store := open(t)
		if _, err := store.CreateStory(ctx, model.NewStory{Title: "here", Content: "x"}); err != nil {
			t.Fatalf("CreateStory: %v", err)
		}
		ok, err := store.StoryTitleExists(ctx, "here")
		if err != nil || !ok {
			t.Fatalf("StoryTitleExists(here) = %v, %v", ok, err)
		}
		ok, err = store.StoryTitleExists(ctx, "missing")
		if err != nil || ok {
			t.Fatalf("StoryTitleExists(missing) = %v, %v", ok, err)
		}
	})
}

func TestSQLiteNonNumericIDIsNotFound(t *testing.T) {
	db := newTestSQLite(t)
	if _, err := db.GetStory(context.Background(), "abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.db")
	db, err := New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.CreateStory(context.Background(), model.NewStory{Title: "a", Content: "b"}); err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	db.Close()

	db, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	stories, err := db.ListStories(context.Background())
	if err != nil || len(stories) != 1 {
		t.Fatalf("stories = %v, err = %v", stories, err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	store, err := Open("sqlite://"+filepath.Join(t.TempDir(), "a.db"), false)
	if err != nil {
		t.Fatalf("Open sqlite url: %v", err)
	}
	defer store.Close()
	if store.DatabaseType() != "SQLite" || store.SupportsHighConcurrency() {
		t.Fatalf("type = %s", store.DatabaseType())
	}

	if _, err := Open("  ", false); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestWithSSLMode(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"postgres://u:p@h/db", true, "postgres://u:p@h/db?sslmode=require"},
		{"postgres://u:p@h/db", false, "postgres://u:p@h/db?sslmode=disable"},
		{"postgres://u:p@h/db?sslmode=verify-full", true, "postgres://u:p@h/db?sslmode=verify-full"},
	}
	for _, tt := range tests {
		got, err := withSSLMode(tt.in, tt.useSSL)
		if err != nil {
			t.Fatalf("withSSLMode(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("withSSLMode(%q, %v) = %q, want %q", tt.in, tt.useSSL, got, tt.want)
		}
	}
}

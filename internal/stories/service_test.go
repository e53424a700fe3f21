package stories

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/inkwell/internal/database"
	"github.com/bryan-buckman/inkwell/internal/model"
	"github.com/bryan-buckman/inkwell/internal/sanitize"
)

func strPtr(s string) *string { return &s }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(t *testing.T, policy string) *Service {
	t.Helper()
	store, err := database.New(filepath.Join(t.TempDir(), "stories.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	sz, err := sanitize.New(policy)
	if err != nil {
		t.Fatalf("sanitizer: %v", err)
	}
	return NewService(store, sz, quietLogger())
}

func TestCreateRequiresTitleAndContent(t *testing.T) {
	svc := newTestService(t, sanitize.PolicyNone)
	ctx := context.Background()

	for _, in := range []model.NewStory{
		{Content: "body"},
		{Title: "title"},
		{},
	} {
		_, err := svc.Create(ctx, in)
		if !IsValidation(err) {
			t.Fatalf("Create(%+v) err = %v, want validation", in, err)
		}
		var e *Error
		if !errors.As(err, &e) || e.Message != MsgRequired {
			t.Fatalf("message = %v", err)
		}
	}

	stories, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stories) != 0 {
		t.Fatalf("validation failures created %d rows", len(stories))
	}
}

func TestCreateEmptyCoverIsNull(t *testing.T) {
	svc := newTestService(t, sanitize.PolicyNone)
	s, err := svc.Create(context.Background(), model.NewStory{Title: "A", Content: "B", CoverImage: strPtr("")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.CoverImage != nil {
		t.Fatalf("cover = %q, want nil", *s.CoverImage)
	}
}

func TestGetUpdateDeleteNotFound(t *testing.T) {
	svc := newTestService(t, sanitize.PolicyNone)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "404"); !IsNotFound(err) {
		t.Fatalf("Get err = %v", err)
	}
	if _, err := svc.Update(ctx, "404", model.StoryPatch{Title: strPtr("x")}); !IsNotFound(err) {
		t.Fatalf("Update err = %v", err)
	}
	if _, err := svc.Delete(ctx, "404"); !IsNotFound(err) {
		t.Fatalf("Delete err = %v", err)
	}
}

func TestDeleteReturnsConfirmation(t *testing.T) {
	svc := newTestService(t, sanitize.PolicyNone)
	ctx := context.Background()
	s, err := svc.Create(ctx, model.NewStory{Title: "A", Content: "B"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	d, err := svc.Delete(ctx, strconv.FormatInt(s.ID, 10))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if d.Message != "Deleted" || d.Story.ID != s.ID {
		t.Fatalf("deleted = %+v", d)
	}
}

func TestVerbatimPolicyStoresMarkupAsIs(t *testing.T) {
	svc := newTestService(t, sanitize.PolicyNone)
	content := `<p>x</p><script>alert(1)</script>`
	s, err := svc.Create(context.Background(), model.NewStory{Title: "A", Content: content})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Content != content {
		t.Fatalf("content = %q", s.Content)
	}
}

func TestUGCPolicySanitizesOnWrite(t *testing.T) {
	svc := newTestService(t, sanitize.PolicyUGC)
	ctx := context.Background()
	s, err := svc.Create(ctx, model.NewStory{Title: "A", Content: `<p>x</p><script>alert(1)</script>`})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if strings.Contains(s.Content, "script") {
		t.Fatalf("content = %q", s.Content)
	}

	u, err := svc.Update(ctx, strconv.FormatInt(s.ID, 10), model.StoryPatch{Content: strPtr(`<b onclick="x()">y</b>`)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if strings.Contains(u.Content, "onclick") {
		t.Fatalf("content = %q", u.Content)
	}
}

type brokenStore struct {
	database.Store
}

var errBroken = errors.New("connection refused")

func (brokenStore) ListStories(context.Context) ([]model.Story, error) {
	return nil, errBroken
}

func (brokenStore) GetStory(context.Context, string) (*model.Story, error) {
	return nil, errBroken
}

func TestStoreFaultIsInternal(t *testing.T) {
	svc := NewService(brokenStore{}, nil, quietLogger())
	ctx := context.Background()

	_, err := svc.List(ctx)
	if KindOf(err) != KindInternal {
		t.Fatalf("List err kind = %v", KindOf(err))
	}
	var e *Error
	if !errors.As(err, &e) || e.Message != MsgDatabase {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, errBroken) {
		t.Fatalf("cause lost: %v", err)
	}

	if _, err := svc.Get(ctx, "1"); KindOf(err) != KindInternal {
		t.Fatalf("Get err = %v", err)
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("x")) != KindInternal {
		t.Fatal("plain errors should be internal")
	}
}

func TestOpenWiresPolicyAndBackend(t *testing.T) {
	svc, err := Open(filepath.Join(t.TempDir(), "open.db"), false, sanitize.PolicyUGC, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer svc.Store().Close()
	if svc.Sanitizer().Name() != sanitize.PolicyUGC || svc.Store().DatabaseType() != "SQLite" {
		t.Fatalf("policy = %s, backend = %s", svc.Sanitizer().Name(), svc.Store().DatabaseType())
	}

	if _, err := Open(filepath.Join(t.TempDir(), "x.db"), false, "paranoid", quietLogger()); err == nil {
		t.Fatal("expected policy error")
	}
}

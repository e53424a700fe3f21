package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bryan-buckman/inkwell/internal/api"
	"github.com/bryan-buckman/inkwell/internal/model"
	"github.com/bryan-buckman/inkwell/internal/present"
	"github.com/bryan-buckman/inkwell/internal/stories"
)

// Notice messages shown on the pages.
const (
	noticeRequired     = "Title & content required"
	noticePostFailed   = "Failed to post story"
	noticeUpdateFailed = "Failed to update"
	noticeDeleteFailed = "Failed to delete story"
	noticeLoadFailed   = "Failed to load stories"
)

type notice struct {
	Text string
	Type string // "error", "success" or "info"
}

// storyForm is the create/edit form state carried between submits.
type storyForm struct {
	Heading    string
	Action     string
	Submit     string
	Title      string
	Cover      string
	Content    string
	MediaURL   string
	CaretStart int
	CaretEnd   int
	Notice     *notice
}

// --- Page Handlers ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	width := queryInt(r, "width", 0)
	perPage := present.PerPage(width)

	data := map[string]interface{}{
		"PageTitle": "Latest Stories",
		"Width":     width,
	}
	list, err := s.svc.List(r.Context())
	if err != nil {
		data["Notice"] = &notice{Text: noticeLoadFailed, Type: "error"}
		data["Page"] = present.Paginate(0, 1, perPage)
		s.render(w, http.StatusInternalServerError, "home", data)
		return
	}
	page := present.Paginate(len(list), queryInt(r, "page", 1), perPage)
	data["Stories"] = list[page.Start:page.End]
	data["Page"] = page
	s.render(w, http.StatusOK, "home", data)
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	story, ok := s.loadStory(w, r)
	if !ok {
		return
	}
	chunks := present.SplitPages(story.Content, present.CharsPerPage)
	page := present.Paginate(len(chunks), queryInt(r, "page", 1), 1)

	var body template.HTML
	if len(chunks) > 0 {
		// Markup is rendered as stored, subject to the configured policy.
		body = template.HTML(s.svc.Sanitizer().Sanitize(chunks[page.Start]))
	}
	s.render(w, http.StatusOK, "story", map[string]interface{}{
		"PageTitle": story.Title,
		"Story":     story,
		"Body":      body,
		"Page":      page,
	})
}

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, newCreateForm())
}

func (s *Server) handleCreateSubmit(w http.ResponseWriter, r *http.Request) {
	f := newCreateForm()
	if !s.readForm(w, r, f) {
		return
	}
	if r.PostFormValue("op") == "insert" {
		s.insertMedia(w, f)
		return
	}
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == "" {
		f.Notice = &notice{Text: noticeRequired, Type: "error"}
		s.renderForm(w, http.StatusBadRequest, f)
		return
	}

	in := model.NewStory{Title: f.Title, Content: f.Content}
	if f.Cover != "" {
		in.CoverImage = &f.Cover
	}
	if _, err := s.svc.Create(r.Context(), in); err != nil {
		f.Notice = &notice{Text: noticePostFailed, Type: "error"}
		s.renderForm(w, api.StatusFor(err), f)
		return
	}
	http.Redirect(w, r, "/ui/", http.StatusSeeOther)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	story, ok := s.loadStory(w, r)
	if !ok {
		return
	}
	f := newEditForm(chi.URLParam(r, "id"))
	f.Title = story.Title
	f.Content = story.Content
	if story.CoverImage != nil {
		f.Cover = *story.CoverImage
	}
	s.renderForm(w, http.StatusOK, f)
}

func (s *Server) handleEditSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f := newEditForm(id)
	if !s.readForm(w, r, f) {
		return
	}
	if r.PostFormValue("op") == "insert" {
		s.insertMedia(w, f)
		return
	}
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == "" {
		f.Notice = &notice{Text: noticeRequired, Type: "error"}
		s.renderForm(w, http.StatusBadRequest, f)
		return
	}

	patch := model.StoryPatch{Title: &f.Title, Content: &f.Content, CoverImage: &f.Cover}
	if _, err := s.svc.Update(r.Context(), id, patch); err != nil {
		f.Notice = &notice{Text: noticeUpdateFailed, Type: "error"}
		s.renderForm(w, api.StatusFor(err), f)
		return
	}
	http.Redirect(w, r, "/ui/manage", http.StatusSeeOther)
}

func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	s.renderManage(w, r, http.StatusOK, nil)
}

func (s *Server) handleManageDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		s.renderManage(w, r, http.StatusBadRequest, &notice{Text: noticeDeleteFailed, Type: "error"})
		return
	}
	if r.PostFormValue("confirm") != "yes" {
		story, ok := s.loadStory(w, r)
		if !ok {
			return
		}
		s.render(w, http.StatusOK, "confirm", map[string]interface{}{
			"PageTitle": "Delete this story?",
			"Story":     story,
		})
		return
	}
	if _, err := s.svc.Delete(r.Context(), id); err != nil {
		s.renderManage(w, r, api.StatusFor(err), &notice{Text: noticeDeleteFailed, Type: "error"})
		return
	}
	http.Redirect(w, r, "/ui/manage", http.StatusSeeOther)
}

// --- Helpers ---

func newCreateForm() *storyForm {
	return &storyForm{Heading: "Write a New Story", Action: "/ui/create", Submit: "Post Story"}
}

func newEditForm(id string) *storyForm {
	return &storyForm{Heading: "Edit Story", Action: "/ui/edit-story/" + id, Submit: "Save Changes"}
}

func (s *Server) readForm(w http.ResponseWriter, r *http.Request, f *storyForm) bool {
	if err := r.ParseForm(); err != nil {
		f.Notice = &notice{Text: err.Error(), Type: "error"}
		s.renderForm(w, http.StatusBadRequest, f)
		return false
	}
	f.Title = r.PostFormValue("title")
	f.Cover = strings.TrimSpace(r.PostFormValue("cover"))
	f.Content = r.PostFormValue("content")
	f.MediaURL = r.PostFormValue("media_url")
	end := len([]rune(f.Content))
	f.CaretStart = formInt(r, "caret_start", end)
	f.CaretEnd = formInt(r, "caret_end", f.CaretStart)
	return true
}

func (s *Server) insertMedia(w http.ResponseWriter, f *storyForm) {
	if strings.TrimSpace(f.MediaURL) == "" {
		s.renderForm(w, http.StatusOK, f)
		return
	}
	f.Content, f.CaretStart = present.InsertMedia(f.Content, f.CaretStart, f.CaretEnd, f.MediaURL)
	f.CaretEnd = f.CaretStart
	f.MediaURL = ""
	f.Notice = &notice{Text: "Media inserted", Type: "info"}
	s.renderForm(w, http.StatusOK, f)
}

func (s *Server) renderForm(w http.ResponseWriter, status int, f *storyForm) {
	s.render(w, status, "form", map[string]interface{}{
		"PageTitle": f.Heading,
		"Form":      f,
		"Notice":    f.Notice,
	})
}

func (s *Server) renderManage(w http.ResponseWriter, r *http.Request, status int, n *notice) {
	data := map[string]interface{}{
		"PageTitle": "Manage Stories",
		"Notice":    n,
	}
	list, err := s.svc.List(r.Context())
	if err != nil {
		data["Notice"] = &notice{Text: noticeLoadFailed, Type: "error"}
		s.render(w, http.StatusInternalServerError, "manage", data)
		return
	}
	data["Stories"] = list
	s.render(w, status, "manage", data)
}

// loadStory fetches the {id} story or renders the not-found/error page.
func (s *Server) loadStory(w http.ResponseWriter, r *http.Request) (*model.Story, bool) {
	story, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err == nil {
		return story, true
	}
	msg := "Story not found"
	if !stories.IsNotFound(err) {
		msg = "Failed to fetch story"
	}
	s.render(w, api.StatusFor(err), "missing", map[string]interface{}{
		"PageTitle": msg,
		"Notice":    &notice{Text: msg, Type: "error"},
	})
	return nil, false
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.WithError(err).WithField("template", name).Error("template error")
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func formInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.PostFormValue(key))
	if err != nil {
		return def
	}
	return v
}

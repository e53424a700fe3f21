// Package server provides the long-running HTTP server: the story API, the
// reader pages and static assets.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/inkwell/internal/api"
	"github.com/bryan-buckman/inkwell/internal/logging"
	"github.com/bryan-buckman/inkwell/internal/stories"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options tune a Server.
type Options struct {
	// CORSOrigins lists allowed origins; empty means "*".
	CORSOrigins []string
}

// Server is the main HTTP server.
type Server struct {
	svc       *stories.Service
	api       *api.Handlers
	log       logrus.FieldLogger
	router    chi.Router
	templates *template.Template
	opts      Options

	mu   sync.Mutex
	http *http.Server
}

// New creates a new server.
func New(svc *stories.Service, log logrus.FieldLogger, opts Options) (*Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"timeAgo": timeAgo,
		"add":     func(a, b int) int { return a + b },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		svc:       svc,
		api:       api.New(svc, log),
		log:       log,
		templates: tmpl,
		opts:      opts,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.AccessLog(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(api.CORS(s.opts.CORSOrigins).Handler)

	r.NotFound(api.NotFound)
	r.MethodNotAllowed(api.MethodNotAllowed)

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", api.Health)
	r.Get("/readyz", s.api.Ready)

	// API.
	r.Route("/api/stories", func(r chi.Router) {
		r.Get("/", s.api.List)
		r.Post("/", s.api.Create)
		r.Get("/{id}", s.withID(s.api.Get))
		r.Put("/{id}", s.withID(s.api.Update))
		r.Delete("/{id}", s.withID(s.api.Delete))
	})

	// Pages.
	r.Route("/ui", func(r chi.Router) {
		r.Get("/", s.handleHome)
		r.Get("/stories/{id}", s.handleStory)
		r.Get("/create", s.handleCreateForm)
		r.Post("/create", s.handleCreateSubmit)
		r.Get("/edit-story/{id}", s.handleEditForm)
		r.Post("/edit-story/{id}", s.handleEditSubmit)
		r.Get("/manage", s.handleManage)
		r.Post("/manage/{id}/delete", s.handleManageDelete)
	})

	s.router = r
}

func (s *Server) withID(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, chi.URLParam(r, "id"))
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.log.WithField("addr", addr).Info("server starting")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

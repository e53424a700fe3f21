// Package api renders story controller results as JSON HTTP responses. The
// router and the function adapter both delegate here once they have worked
// out which operation and identifier a request is for.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/inkwell/internal/model"
	"github.com/bryan-buckman/inkwell/internal/stories"
)

// MaxBodyBytes caps request bodies. Stories carry inline markup, not uploads.
const MaxBodyBytes = 8 << 20

// Handlers serves the five story operations.
type Handlers struct {
	svc *stories.Service
	log logrus.FieldLogger
}

// New creates handlers over a controller.
func New(svc *stories.Service, log logrus.FieldLogger) *Handlers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handlers{svc: svc, log: log}
}

// List handles GET on the collection.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// Get handles GET on one story.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request, id string) {
	story, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, story)
}

// Create handles POST on the collection.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewStory
	if !decodeBody(w, r, &in) {
		return
	}
	story, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, story)
}

// Update handles PUT on one story.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request, id string) {
	var p model.StoryPatch
	if !decodeBody(w, r, &p) {
		return
	}
	story, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, story)
}

// Delete handles DELETE on one story.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, deleted)
}

// Health answers the root liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Ready answers 200 while the store responds to a ping, 503 otherwise.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Store().Ping(r.Context()); err != nil {
		h.log.WithError(err).Warn("readiness ping failed")
		WriteError(w, http.StatusServiceUnavailable, stories.MsgDatabase)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MethodNotAllowed writes the 405 body.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, stories.MsgMethodNotAllowed)
}

// NotFound writes a 404 body for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "Not found")
}

// CORS builds the cross-origin middleware shared by every adapter. No
// origins means any origin.
func CORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
}

// StatusFor maps a controller error to an HTTP status.
func StatusFor(err error) int {
	switch stories.KindOf(err) {
	case stories.KindValidation:
		return http.StatusBadRequest
	case stories.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the caller-safe message only; causes were logged by the controller.
func (h *Handlers) fail(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := stories.MsgDatabase
	var e *stories.Error
	if errors.As(err, &e) && status != http.StatusInternalServerError {
		msg = e.Message
	}
	h.log.WithFields(logrus.Fields{"status": status, "kind": stories.KindOf(err)}).Debug(msg)
	WriteError(w, status, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, stories.MsgInvalidBody)
		return false
	}
	return true
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {"error": msg} body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// Package function serves the story API from a single handler, selecting
// the item with an ?id= query parameter. It suits per-route and serverless
// deployments where the platform owns the path.
package function

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/inkwell/internal/api"
	"github.com/bryan-buckman/inkwell/internal/stories"
)

// Opener builds the controller on first use.
type Opener func() (*stories.Service, error)

// Function is an http.Handler for the whole story API.
type Function struct {
	open    Opener
	log     logrus.FieldLogger
	handler http.Handler

	mu  sync.Mutex
	svc *stories.Service
	api *api.Handlers
}

// New creates a Function. The store is not opened until the first request.
func New(open Opener, log logrus.FieldLogger, corsOrigins []string) *Function {
	if log == nil {
		log = logrus.StandardLogger()
	}
	f := &Function{open: open, log: log}
	f.handler = api.CORS(corsOrigins).Handler(http.HandlerFunc(f.dispatch))
	return f
}

// ServeHTTP implements http.Handler.
func (f *Function) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.handler.ServeHTTP(w, r)
}

// Close releases the store if it was opened.
func (f *Function) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.svc == nil {
		return nil
	}
	err := f.svc.Store().Close()
	f.svc, f.api = nil, nil
	return err
}

// handlers returns the API handlers, opening the store on first use. A
// failed open is retried by the next request.
func (f *Function) handlers() (*api.Handlers, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.api != nil {
		return f.api, nil
	}
	svc, err := f.open()
	if err != nil {
		return nil, err
	}
	f.svc = svc
	f.api = api.New(svc, f.log)
	f.log.WithField("backend", svc.Store().DatabaseType()).Info("store opened")
	return f.api, nil
}

func (f *Function) dispatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		api.MethodNotAllowed(w, r)
		return
	}

	h, err := f.handlers()
	if err != nil {
		f.log.WithError(err).Error("open store")
		api.WriteError(w, http.StatusInternalServerError, stories.MsgDatabase)
		return
	}

	id := r.URL.Query().Get("id")
	switch r.Method {
	case http.MethodGet:
		if id != "" {
			h.Get(w, r, id)
			return
		}
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodPut:
		if id == "" {
			api.WriteError(w, http.StatusNotFound, stories.MsgNotFound)
			return
		}
		h.Update(w, r, id)
	case http.MethodDelete:
		if id == "" {
			api.WriteError(w, http.StatusNotFound, stories.MsgNotFound)
			return
		}
		h.Delete(w, r, id)
	}
}

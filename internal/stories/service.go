// Package stories is the controller for the five story operations. It knows
// nothing about HTTP: adapters turn its results and *Error values into
// responses.
package stories

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bryan-buckman/inkwell/internal/database"
	"github.com/bryan-buckman/inkwell/internal/model"
	"github.com/bryan-buckman/inkwell/internal/sanitize"
)

// Service runs story operations against a store.
type Service struct {
	store     database.Store
	sanitizer sanitize.Sanitizer
	log       logrus.FieldLogger
}

// NewService wires a controller. A nil sanitizer keeps content verbatim.
func NewService(store database.Store, sanitizer sanitize.Sanitizer, log logrus.FieldLogger) *Service {
	if sanitizer == nil {
		sanitizer, _ = sanitize.New(sanitize.PolicyNone)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, sanitizer: sanitizer, log: log}
}

// Open connects to the store named by dsn and wires a controller over it
// with the named sanitize policy. The caller owns Store().Close().
func Open(dsn string, useSSL bool, policy string, log logrus.FieldLogger) (*Service, error) {
	sz, err := sanitize.New(policy)
	if err != nil {
		return nil, err
	}
	store, err := database.Open(dsn, useSSL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return NewService(store, sz, log), nil
}

// Sanitizer returns the content policy in effect.
func (s *Service) Sanitizer() sanitize.Sanitizer {
	return s.sanitizer
}

// Store returns the underlying store handle.
func (s *Service) Store() database.Store {
	return s.store
}

// List returns all stories, newest first. Never nil.
func (s *Service) List(ctx context.Context) ([]model.Story, error) {
	stories, err := s.store.ListStories(ctx)
	if err != nil {
		return nil, s.fail("list", "", err)
	}
	if stories == nil {
		stories = []model.Story{}
	}
	return stories, nil
}

// Get returns one story.
func (s *Service) Get(ctx context.Context, id string) (*model.Story, error) {
	story, err := s.store.GetStory(ctx, id)
	if err != nil {
		return nil, s.fail("get", id, err)
	}
	return story, nil
}

// Create validates and inserts a story. An empty cover is stored as null.
func (s *Service) Create(ctx context.Context, in model.NewStory) (*model.Story, error) {
	if in.Title == "" || in.Content == "" {
		return nil, validation(MsgRequired)
	}
	if in.CoverImage != nil && *in.CoverImage == "" {
		in.CoverImage = nil
	}
	in.Content = s.sanitizer.Sanitize(in.Content)

	story, err := s.store.CreateStory(ctx, in)
	if err != nil {
		return nil, s.fail("create", "", err)
	}
	s.log.WithFields(logrus.Fields{"op": "create", "id": story.ID}).Debug("story created")
	return story, nil
}

// Update overwrites the supplied fields of a story.
func (s *Service) Update(ctx context.Context, id string, p model.StoryPatch) (*model.Story, error) {
	if p.Content != nil {
		clean := s.sanitizer.Sanitize(*p.Content)
		p.Content = &clean
	}
	story, err := s.store.UpdateStory(ctx, id, p)
	if err != nil {
		return nil, s.fail("update", id, err)
	}
	s.log.WithFields(logrus.Fields{"op": "update", "id": story.ID}).Debug("story updated")
	return story, nil
}

// Delete removes a story permanently and returns it.
func (s *Service) Delete(ctx context.Context, id string) (*model.Deleted, error) {
	story, err := s.store.DeleteStory(ctx, id)
	if err != nil {
		return nil, s.fail("delete", id, err)
	}
	s.log.WithFields(logrus.Fields{"op": "delete", "id": story.ID}).Info("story deleted")
	return &model.Deleted{Message: "Deleted", Story: *story}, nil
}

func (s *Service) fail(op, id string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return notFound(err)
	}
	fields := logrus.Fields{"op": op}
	if id != "" {
		fields["id"] = id
	}
	s.log.WithFields(fields).WithError(err).Error("story store failure")
	return internal(err)
}

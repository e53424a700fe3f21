// Package client talks to the story API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryan-buckman/inkwell/internal/model"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Client calls the /stories endpoints of one API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:3000/api.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// List returns every story, newest first.
func (c *Client) List(ctx context.Context) ([]model.Story, error) {
	var out []model.Story
	if err := c.do(ctx, http.MethodGet, "/stories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one story by id.
func (c *Client) Get(ctx context.Context, id string) (*model.Story, error) {
	var out model.Story
	if err := c.do(ctx, http.MethodGet, storyPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a new story and returns the stored row.
func (c *Client) Create(ctx context.Context, in model.NewStory) (*model.Story, error) {
	var out model.Story
	if err := c.do(ctx, http.MethodPost, "/stories", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies the set fields of p to the story.
func (c *Client) Update(ctx context.Context, id string, p model.StoryPatch) (*model.Story, error) {
	var out model.Story
	if err := c.do(ctx, http.MethodPut, storyPath(id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the story and returns its last state.
func (c *Client) Delete(ctx context.Context, id string) (*model.Deleted, error) {
	var out model.Deleted
	if err := c.do(ctx, http.MethodDelete, storyPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func storyPath(id string) string {
	return "/stories/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFrom(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorFrom prefers the body's "error", then "message", then the status text.
func errorFrom(resp *http.Response) error {
	e := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err == nil {
		if msg, ok := payload["error"].(string); ok && msg != "" {
			e.Message = msg
		} else if msg, ok := payload["message"].(string); ok && msg != "" {
			e.Message = msg
		}
	}
	return e
}

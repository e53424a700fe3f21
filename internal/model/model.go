// Package model defines shared data structures.
package model

import "time"

// Story is a published piece: the only entity the store holds.
type Story struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CoverImage *string   `json:"cover_image"` // nil when no cover was given
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewStory is the create payload.
type NewStory struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CoverImage *string `json:"cover_image,omitempty"`
}

// StoryPatch is the update payload. A nil field keeps the stored value.
type StoryPatch struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	CoverImage *string `json:"cover_image,omitempty"`
}

// Deleted is the body returned after a story is removed.
type Deleted struct {
	Message string `json:"message"`
	Story   Story  `json:"story"`
}

// DefaultCoverImage is shown for stories without a cover.
const DefaultCoverImage = "https://picsum.photos/600/800"

// Cover returns the story's cover URL, or the placeholder.
func (s Story) Cover() string {
	if s.CoverImage == nil || *s.CoverImage == "" {
		return DefaultCoverImage
	}
	return *s.CoverImage
}

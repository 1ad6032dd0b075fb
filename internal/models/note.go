// Package models defines the domain types for the notes service.
package models

import "time"

// Note is the single persisted resource.
type Note struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteInput is the payload accepted when creating a note.
type NoteInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// NotePatch is a partial update. Nil fields are left untouched.
type NotePatch struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// Apply copies the supplied fields onto n.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = NonNil(*p.Tags)
	}
}

// Filter narrows a Find call. A zero Filter matches every note.
type Filter struct {
	Tag string
}

// Timestamp returns t in UTC truncated to millisecond precision, which is
// what both storage drivers persist.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NonNil returns s, or an empty slice if s is nil.
func NonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

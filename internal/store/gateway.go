// Package store is the persistence gateway for notes.
package store

import (
	"context"
	"time"

	"github.com/starford/notes/internal/models"
)

// Gateway is the interface for note document operations.
//
// Implementations return apperr.ErrNotFound when no document matches an id
// (malformed ids included) and wrap every other driver failure.
type Gateway interface {
	// Find returns notes matching f, newest updatedAt first.
	Find(ctx context.Context, f models.Filter) ([]models.Note, error)
	// Get returns the note with the given id.
	Get(ctx context.Context, id string) (*models.Note, error)
	// Insert persists n and assigns n.ID.
	Insert(ctx context.Context, n *models.Note) error
	// Update applies p, sets updatedAt and returns the stored result.
	Update(ctx context.Context, id string, p models.NotePatch, updatedAt time.Time) (*models.Note, error)
	// Delete removes the note and returns its last state.
	Delete(ctx context.Context, id string) (*models.Note, error)
	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Verify implementations satisfy Gateway at compile time.
var (
	_ Gateway = (*Mongo)(nil)
	_ Gateway = (*SQLite)(nil)
)

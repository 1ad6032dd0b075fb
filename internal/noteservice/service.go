// Package noteservice implements the note operations on top of a store.Gateway.
package noteservice

import (
	"context"
	"time"

	"github.com/starford/notes/internal/models"
	"github.com/starford/notes/internal/store"
)

// Service coordinates validation and persistence for notes.
type Service struct {
	store store.Gateway
	now   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new note service.
func NewService(gw store.Gateway, opts ...ServiceOption) *Service {
	s := &Service{store: gw, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all notes, most recently updated first.
func (s *Service) List(ctx context.Context) ([]models.Note, error) {
	return s.store.Find(ctx, models.Filter{})
}

// Get returns the note with the given id or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	return s.store.Get(ctx, id)
}

// Create validates in and persists a new note.
func (s *Service) Create(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	if err := ValidateCreate(in); err != nil {
		return nil, err
	}
	now := models.Timestamp(s.now())
	n := &models.Note{
		Title:     in.Title,
		Content:   in.Content,
		Tags:      models.NonNil(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Update replaces the supplied fields and refreshes updatedAt.
func (s *Service) Update(ctx context.Context, id string, p models.NotePatch) (*models.Note, error) {
	if err := ValidatePatch(p); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, p, models.Timestamp(s.now()))
}

// Delete removes a note and returns its last state.
func (s *Service) Delete(ctx context.Context, id string) (*models.Note, error) {
	return s.store.Delete(ctx, id)
}

// SearchByTag returns notes carrying tag (exact, case-sensitive), most
// recently updated first.
func (s *Service) SearchByTag(ctx context.Context, tag string) ([]models.Note, error) {
	if tag == "" {
		return []models.Note{}, nil
	}
	return s.store.Find(ctx, models.Filter{Tag: tag})
}

// Ready reports whether the backing store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

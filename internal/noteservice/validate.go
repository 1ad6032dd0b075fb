package noteservice

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notes/internal/apperr"
	"github.com/starford/notes/internal/models"
)

// ValidateCreate checks that a new note carries a title and content.
func ValidateCreate(in models.NoteInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Content, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	return nil
}

// ValidatePatch rejects a patch that would blank out title or content.
func ValidatePatch(p models.NotePatch) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.NilOrNotEmpty),
		validation.Field(&p.Content, validation.NilOrNotEmpty),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidInput, err)
	}
	return nil
}

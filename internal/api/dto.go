package api

import "github.com/starford/notes/internal/models"

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string   `json:"title" example:"Swagger note" validate:"required"`
	Content string   `json:"content" example:"Swagger is a great tool for documenting APIs" validate:"required"`
	Tags    []string `json:"tags" example:"swagger,api"`
}

// UpdateNoteRequest is the request body for updating a note. Omitted fields
// are left unchanged.
type UpdateNoteRequest struct {
	Title   *string   `json:"title,omitempty" example:"Renamed note"`
	Content *string   `json:"content,omitempty" example:"New content"`
	Tags    *[]string `json:"tags,omitempty" example:"api"`
}

// Note is the note representation returned by the API (aliased from the domain layer).
type Note = models.Note

// DeleteNoteResponse confirms a deletion and echoes the removed note.
type DeleteNoteResponse struct {
	Message string `json:"message" example:"Note deleted successfully" validate:"required"`
	Note    Note   `json:"note" validate:"required"`
}

func (r CreateNoteRequest) input() models.NoteInput {
	return models.NoteInput{Title: r.Title, Content: r.Content, Tags: r.Tags}
}

func (r UpdateNoteRequest) patch() models.NotePatch {
	return models.NotePatch{Title: r.Title, Content: r.Content, Tags: r.Tags}
}

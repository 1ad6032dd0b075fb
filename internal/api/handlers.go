package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notes/internal/apperr"
	"github.com/starford/notes/internal/noteservice"
)

const (
	msgServerError   = "Server error"
	msgNotFound      = "Note not found"
	msgRequired      = "Title and content are required"
	msgEmptyOnUpdate = "Title and content cannot be empty"
	msgInvalidJSON   = "Invalid JSON body"
	msgDeleted       = "Note deleted successfully"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a chi URL parameter decoded exactly once. chi routes on
// r.URL.RawPath when it is set, so only then is the value still escaped.
func urlParam(r *http.Request, key string) string {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List all notes
//	@Description	Returns every note, most recently updated first.
//	@Tags			notes
//	@Produce		json
//	@Success		200	{array}		Note
//	@Failure		500	{object}	errResponse
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.List(r.Context())
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorDetail(msgServerError, err))
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	Note
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get note failed", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorDetail(msgInvalidJSON, err))
		return
	}
	note, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorDetail(msgRequired, err))
			return
		}
		h.fail(w, "create note failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update a note
//	@Description	Replaces the supplied fields and refreshes updatedAt. Title and content may not be set to empty strings.
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to replace"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	var req UpdateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorDetail(msgInvalidJSON, err))
		return
	}
	note, err := h.svc.Update(r.Context(), id, req.patch())
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorDetail(msgEmptyOnUpdate, err))
			return
		}
		h.fail(w, "update note failed", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	DeleteNoteResponse
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	note, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, "delete note failed", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, DeleteNoteResponse{Message: msgDeleted, Note: *note})
}

// NotesByTag handles GET /api/notes/tags/{tag}.
//
//	@Summary		Find notes by tag
//	@Description	Exact, case-sensitive tag match. Most recently updated first.
//	@Tags			notes
//	@Produce		json
//	@Param			tag	path		string	true	"Tag to search for"
//	@Success		200	{array}		Note
//	@Failure		500	{object}	errResponse
//	@Router			/notes/tags/{tag} [get]
func (h *Handler) NotesByTag(w http.ResponseWriter, r *http.Request) {
	tag := urlParam(r, "tag")
	notes, err := h.svc.SearchByTag(r.Context(), tag)
	if err != nil {
		slog.Error("tag search failed", slog.String("tag", tag), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorDetail(msgServerError, err))
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// fail maps a service error to 404 or 500.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error, attrs ...any) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody(msgNotFound))
		return
	}
	slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	writeJSON(w, http.StatusInternalServerError, errorDetail(msgServerError, err))
}

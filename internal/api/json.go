package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes matches the usual JSON body-parser default of 100 KiB.
const maxBodyBytes = 100 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// decodeJSON reads a JSON object into v. An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// errResponse is the error body returned by every failing endpoint.
type errResponse struct {
	Message string `json:"message" example:"Note not found" validate:"required"`
	Error   string `json:"error,omitempty" example:"connection refused"`
}

func errorBody(msg string) errResponse {
	return errResponse{Message: msg}
}

func errorDetail(msg string, err error) errResponse {
	return errResponse{Message: msg, Error: err.Error()}
}

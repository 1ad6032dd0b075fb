package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/starford/notes/docs" // registers the API document with swag
	"github.com/starford/notes/internal/noteservice"
)

// DefaultDocsPath is where the API documentation is served.
const DefaultDocsPath = "/api-docs"

// NewRouter creates a chi router with the note routes, to be mounted at /api.
func NewRouter(svc *noteservice.Service) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/tags/{tag}", h.NotesByTag)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	return r
}

// NewServer builds the root HTTP handler: shared middleware, health checks,
// metrics, API documentation (when docsPath is non-empty) and the /api routes.
func NewServer(svc *noteservice.Service, docsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(CORS)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := svc.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorDetail("store unavailable", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if docsPath != "" {
		r.Get(docsPath, func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, docsPath+"/index.html", http.StatusMovedPermanently)
		})
		r.Get(docsPath+"/*", httpSwagger.Handler(httpSwagger.URL(docsPath+"/doc.json")))
	}

	r.Mount("/api", NewRouter(svc))
	return r
}

// Package chi exposes the ingestion and progress API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rura-ai/rura/internal/domain"
	"github.com/rura-ai/rura/internal/progress"
	ingestuc "github.com/rura-ai/rura/internal/usecase/ingest"
)

// Server routes HTTP requests to the ingest pipeline and progress store.
type Server struct {
	ingest   *ingestuc.Service
	progress *progress.Store
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(ingest *ingestuc.Service, progress *progress.Store, logger *zap.Logger) *Server {
	return &Server{ingest: ingest, progress: progress, logger: logger}
}

// Routes registers the API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.Healthz)
	r.Get("/get-state", s.GetState)
	r.Post("/upload", s.Upload)
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetState handles GET /get-state. It returns a snapshot of every tracked
// job keyed by id.
func (s *Server) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.progress.Snapshot())
}

// uploadResponse carries the id of a started ingestion job.
type uploadResponse struct {
	JobID string `json:"job_id"`
}

// Upload handles POST /upload. The sitemap crawl runs before the response;
// encoding and storage continue in the background under the returned job id.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := ingestuc.Params{
		URL:            q.Get("url"),
		BaseCollection: q.Get("base_collection"),
		OllamaHost:     q.Get("ollama_host"),
		OllamaModel:    q.Get("ollama_model"),
	}
	if params.URL == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	if raw := q.Get("ollama_port"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			writeError(w, http.StatusBadRequest, "ollama_port must be a valid port number")
			return
		}
		params.OllamaPort = port
	}

	if raw := q.Get("filter_collections"); raw != "" {
		filter, err := domain.ParseCollections(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Filter = filter
	}

	jobID, err := s.ingest.Start(r.Context(), params)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{JobID: jobID})
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyURL), errors.Is(err, domain.ErrUnknownCollection):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/jobs"
	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/metrics"
	"github.com/murmurnotes/murmur/pkg/noteindex"
	"github.com/murmurnotes/murmur/pkg/notes"
	"github.com/murmurnotes/murmur/pkg/notestore"
	"github.com/murmurnotes/murmur/pkg/settings"
	"github.com/murmurnotes/murmur/pkg/transcriber"
	"github.com/murmurnotes/murmur/pkg/uploads"
)

// Config wires the server's dependencies.
type Config struct {
	Notes       *notes.Service
	Engine      *jobs.Engine
	Settings    *settings.Service
	Transcriber transcriber.Transcriber
	Uploads     *uploads.Saver
}

// Server is the HTTP API: notes and folders, the transcription job
// engine, settings, and metrics.
type Server struct {
	notes    *notes.Service
	engine   *jobs.Engine
	settings *settings.Service
	tr       transcriber.Transcriber
	uploads  *uploads.Saver
	http     *http.Server
	logger   zerolog.Logger
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		notes:    cfg.Notes,
		engine:   cfg.Engine,
		settings: cfg.Settings,
		tr:       cfg.Transcriber,
		uploads:  cfg.Uploads,
		logger:   log.WithComponent("api"),
	}
	s.http = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree. Note paths are wildcard segments, so
// the literal prefixes (/id/, rename and move suffixes) are carved
// out explicitly; a note stored under a folder named "id" is
// shadowed by the id routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metricsMiddleware)

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/notes", func(r chi.Router) {
		r.Get("/", s.handleListNotes)
		r.Post("/", s.handleCreateNote)
		r.Route("/id/{noteID}", func(r chi.Router) {
			r.Get("/", s.handleGetNoteByID)
			r.Patch("/replace-marker", s.handleReplaceMarker)
		})
		r.Get("/*", s.handleGetNote)
		r.Put("/*", s.handleUpdateNote)
		r.Delete("/*", s.handleDeleteNote)
		r.Patch("/*", s.handleNotePatch)
	})

	r.Route("/api/folders", func(r chi.Router) {
		r.Get("/tree", s.handleFolderTree)
		r.Post("/", s.handleCreateFolder)
		r.Delete("/*", s.handleDeleteFolder)
		r.Patch("/*", s.handleFolderPatch)
	})

	r.Route("/api/transcription", func(r chi.Router) {
		r.Get("/formats", s.handleFormats)
		r.Post("/audio", s.handleTranscribeAudio)
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Post("/", s.handleCreateJob)
			r.Post("/resume-interrupted", s.handleResumeInterrupted)
			r.Get("/{jobID}", s.handleGetJob)
			r.Post("/{jobID}/cancel", s.handleCancelJob)
			r.Post("/{jobID}/resume", s.handleResumeJob)
		})
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/", s.handleGetSettings)
		r.Put("/", s.handleUpdateSettings)
	})

	return r
}

// Start listens and serves until Shutdown.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info().Str("addr", addr).Msg("http api listening")
	if err := s.http.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.GetHealth())
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.Error().Err(err).Msg("failed to encode json response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// decodeJSON reads a request body into v; callers translate failures
// into a 400.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeServiceError maps service-layer errors onto the API contract:
// 404 for anything missing, 400 for validation and a full queue, 409
// for conflicts, with the revision conflict carrying its details
// payload.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var conflict *notes.RevisionConflictError
	var validation *transcriber.ValidationError

	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   "revision_conflict",
			Message: conflict.Error(),
			Details: conflict,
		})
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation", validation.Message)
	case errors.Is(err, jobs.ErrQueueFull):
		writeError(w, http.StatusBadRequest, "queue_full", err.Error())
	case errors.Is(err, notestore.ErrNoteNotFound),
		errors.Is(err, notestore.ErrFolderNotFound),
		errors.Is(err, noteindex.ErrNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, jobs.ErrTargetNoteNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, notestore.ErrNoteExists):
		writeError(w, http.StatusConflict, "note_exists", err.Error())
	case errors.Is(err, notestore.ErrFolderExists):
		writeError(w, http.StatusConflict, "folder_exists", err.Error())
	case errors.Is(err, notestore.ErrFolderNotEmpty):
		writeError(w, http.StatusConflict, "folder_not_empty", err.Error())
	case errors.Is(err, jobs.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, notestore.ErrInvalidPath),
		errors.Is(err, notestore.ErrInvalidName),
		errors.Is(err, notestore.ErrRootFolder),
		errors.Is(err, notes.ErrExpectedRevisionRequired),
		errors.Is(err, notes.ErrInvalidFileType),
		errors.Is(err, notes.ErrMarkerRequired):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

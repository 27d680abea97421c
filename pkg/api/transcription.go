package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murmurnotes/murmur/pkg/jobs"
	"github.com/murmurnotes/murmur/pkg/transcriber"
)

// maxUploadBytes caps multipart bodies: the audio ceiling plus
// headroom for the form fields around it.
const maxUploadBytes = transcriber.MaxFileSize + 10*1024*1024

// handleFormats serves GET /api/transcription/formats.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats":     transcriber.SupportedFormats,
		"max_size_mb": transcriber.MaxFileSize / (1024 * 1024),
	})
}

// handleTranscribeAudio serves POST /api/transcription/audio, a
// synchronous transcribe with no job bookkeeping. The scratch file is
// discarded whichever way the request ends.
func (s *Server) handleTranscribeAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "No audio file provided")
		return
	}
	defer file.Close()

	receipt, err := s.uploads.Save(file, header.Filename)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer receipt.Discard()

	transcript, err := s.tr.Transcribe(r.Context(), receipt.Path())
	if err != nil {
		var validation *transcriber.ValidationError
		if errors.As(err, &validation) {
			writeError(w, http.StatusBadRequest, "validation", validation.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "transcription_failed",
			fmt.Sprintf("Transcription failed: %s", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":     transcript.Text,
		"language": transcript.Language,
		"duration": transcript.Duration,
		"message":  "Transcription successful",
	})
}

// handleCreateJob serves POST /api/transcription/jobs. The upload is
// staged before admission; custody passes to the engine only once the
// job is accepted.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "No audio file provided")
		return
	}
	defer file.Close()

	noteID := r.FormValue("note_id")
	markerToken := r.FormValue("marker_token")
	if noteID == "" || markerToken == "" {
		writeError(w, http.StatusBadRequest, "validation", "note_id and marker_token are required")
		return
	}

	receipt, err := s.uploads.Save(file, header.Filename)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	view, err := s.engine.CreateJob(jobs.CreateParams{
		NoteID:         noteID,
		MarkerToken:    markerToken,
		AudioPath:      receipt.Path(),
		SourceFilename: header.Filename,
		LaunchSource:   r.FormValue("launch_source"),
	})
	if err != nil {
		receipt.Discard()
		s.writeServiceError(w, err)
		return
	}
	receipt.Commit()

	writeJSON(w, http.StatusAccepted, view)
}

// handleListJobs serves GET /api/transcription/jobs, newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.engine.ListJobs()})
}

// handleGetJob serves GET /api/transcription/jobs/{jobID}.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.GetJob(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCancelJob serves POST /api/transcription/jobs/{jobID}/cancel.
// Cancelling a terminal job is a no-op that returns the job as is.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.CancelJob(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleResumeJob serves POST /api/transcription/jobs/{jobID}/resume.
func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.ResumeJob(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleResumeInterrupted serves POST /api/transcription/jobs/resume-interrupted.
func (s *Server) handleResumeInterrupted(w http.ResponseWriter, r *http.Request) {
	resumed, err := s.engine.ResumeInterrupted()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"resumed": resumed})
}

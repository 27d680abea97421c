package api

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurnotes/murmur/pkg/jobs"
	"github.com/murmurnotes/murmur/pkg/types"
)

func uploadCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestFormats(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/transcription/formats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Formats   []string `json:"formats"`
		MaxSizeMB int      `json:"max_size_mb"`
	}
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Formats, ".wav")
	assert.Contains(t, body.Formats, ".m4a")
	assert.Equal(t, 100, body.MaxSizeMB)
}

func TestTranscribeAudio(t *testing.T) {
	env := newAPIEnv(t)
	env.tr.fn = func(string) (types.Transcript, error) {
		return types.Transcript{Text: "hello from audio", Language: "en", Duration: 2.5}, nil
	}

	rec := env.doMultipart(t, "/api/transcription/audio", nil, "clip.wav", []byte("RIFFdata"))
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var body struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
		Message  string  `json:"message"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "hello from audio", body.Text)
	assert.Equal(t, "en", body.Language)
	assert.Equal(t, 2.5, body.Duration)
	assert.Equal(t, "Transcription successful", body.Message)

	// Scratch file cleaned up after the synchronous path.
	assert.Equal(t, 0, uploadCount(t, env.uploadsDir))
}

func TestTranscribeAudioFailure(t *testing.T) {
	env := newAPIEnv(t)
	env.tr.fn = func(string) (types.Transcript, error) {
		return types.Transcript{}, errors.New("whisper exited with status 1")
	}

	rec := env.doMultipart(t, "/api/transcription/audio", nil, "clip.wav", []byte("RIFFdata"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "transcription_failed", resp.Error)
	assert.Contains(t, resp.Message, "whisper exited with status 1")
	assert.Equal(t, 0, uploadCount(t, env.uploadsDir))
}

func TestTranscribeAudioRejectsFormat(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.doMultipart(t, "/api/transcription/audio", nil, "payload.exe", []byte("MZ"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "validation", resp.Error)
	assert.Contains(t, resp.Message, "Unsupported file format")
	assert.Equal(t, 0, uploadCount(t, env.uploadsDir))
}

func TestTranscribeAudioRequiresFile(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.doMultipart(t, "/api/transcription/audio", map[string]string{"noise": "x"}, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "No audio file provided", resp.Message)
}

func TestCreateJobAccepted(t *testing.T) {
	env := newAPIEnv(t)
	note := env.createNote(t, "", "memo", "text [[tx:1]] more")

	rec := env.doMultipart(t, "/api/transcription/jobs", map[string]string{
		"note_id":       note.NoteID,
		"marker_token":  "[[tx:1]]",
		"launch_source": "toolbar",
	}, "clip.wav", []byte("RIFFdata"))
	require.Equal(t, http.StatusAccepted, rec.Code, "body: %s", rec.Body.String())

	var view types.JobView
	decodeBody(t, rec, &view)
	assert.Equal(t, types.JobStatusQueued, view.Status)
	assert.Equal(t, note.NoteID, view.NoteID)
	assert.Equal(t, "clip.wav", view.SourceFilename)
	assert.Equal(t, "toolbar", view.LaunchSource)
	assert.True(t, view.CanCancel)

	// Custody passed to the engine: the staged audio survives the
	// request.
	require.True(t, strings.HasPrefix(view.AudioPath, env.uploadsDir))
	_, err := os.Stat(view.AudioPath)
	require.NoError(t, err)

	got, err := env.engine.GetJob(view.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, got.Status)
}

func TestCreateJobRequiresFields(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.doMultipart(t, "/api/transcription/jobs", map[string]string{
		"marker_token": "[[tx:1]]",
	}, "clip.wav", []byte("RIFFdata"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "note_id and marker_token are required", resp.Message)
	assert.Equal(t, 0, uploadCount(t, env.uploadsDir))
}

func TestCreateJobRequiresAudio(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.doMultipart(t, "/api/transcription/jobs", map[string]string{
		"note_id":      "whatever",
		"marker_token": "[[tx:1]]",
	}, "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "No audio file provided", resp.Message)
}

func TestCreateJobUnknownNoteDiscardsUpload(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.doMultipart(t, "/api/transcription/jobs", map[string]string{
		"note_id":      "no-such-note",
		"marker_token": "[[tx:1]]",
	}, "clip.wav", []byte("RIFFdata"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "not_found", resp.Error)
	assert.Equal(t, 0, uploadCount(t, env.uploadsDir))
}

func TestJobLifecycleEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	note := env.createNote(t, "", "memo", "text [[tx:1]] more")

	rec := env.doMultipart(t, "/api/transcription/jobs", map[string]string{
		"note_id":      note.NoteID,
		"marker_token": "[[tx:1]]",
	}, "clip.wav", []byte("RIFFdata"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created types.JobView
	decodeBody(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/api/transcription/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Jobs []types.JobView `json:"jobs"`
	}
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Jobs, 1)
	assert.Equal(t, created.ID, listing.Jobs[0].ID)

	rec = env.do(t, http.MethodGet, "/api/transcription/jobs/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/transcription/jobs/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled types.JobView
	decodeBody(t, rec, &cancelled)
	assert.Equal(t, types.JobStatusCancelled, cancelled.Status)
	assert.Equal(t, jobs.CodeCancelledBeforeRun, cancelled.ErrorCode)

	// The engine reclaimed the staged audio on cancel.
	assert.Equal(t, 0, uploadCount(t, env.uploadsDir))

	// A cancelled job is not resumable.
	rec = env.do(t, http.MethodPost, "/api/transcription/jobs/"+created.ID+"/resume", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "invalid_state", resp.Error)

	rec = env.do(t, http.MethodPost, "/api/transcription/jobs/resume-interrupted", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resumed map[string]int
	decodeBody(t, rec, &resumed)
	assert.Equal(t, 0, resumed["resumed"])
}

func TestGetJobNotFound(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/api/transcription/jobs/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "not_found", resp.Error)
}

package client

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurnotes/murmur/pkg/api"
	"github.com/murmurnotes/murmur/pkg/events"
	"github.com/murmurnotes/murmur/pkg/jobs"
	"github.com/murmurnotes/murmur/pkg/noteindex"
	"github.com/murmurnotes/murmur/pkg/notes"
	"github.com/murmurnotes/murmur/pkg/notestore"
	"github.com/murmurnotes/murmur/pkg/settings"
	"github.com/murmurnotes/murmur/pkg/storage"
	"github.com/murmurnotes/murmur/pkg/types"
	"github.com/murmurnotes/murmur/pkg/uploads"
)

type stubTranscriber struct{}

// Transcribe echoes the scratch file's extension; uploads keep the
// original extension, so tests can see it survived the round trip.
func (stubTranscriber) Transcribe(_ context.Context, path string) (types.Transcript, error) {
	return types.Transcript{Text: "transcribed " + filepath.Ext(path), Language: "en", Duration: 1.5}, nil
}

// newTestClient boots the full backend behind an httptest server. The
// engine's workers stay stopped so queued jobs hold still.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	dataDir := t.TempDir()
	store, err := storage.NewFileStore(dataDir)
	require.NoError(t, err)

	files, err := notestore.New(filepath.Join(dataDir, "notes"))
	require.NoError(t, err)
	index := noteindex.New(store)
	noteSvc := notes.NewService(files, index)
	require.NoError(t, noteSvc.SyncIndex())

	settingsSvc := settings.New(store)

	engine, err := jobs.NewEngine(jobs.Config{
		Store:       store,
		Events:      events.NewLog(store, jobs.EventsFile),
		Notes:       noteSvc,
		Settings:    settingsSvc,
		Transcriber: stubTranscriber{},
		WorkerSlots: 1,
	})
	require.NoError(t, err)

	saver, err := uploads.NewSaver(filepath.Join(dataDir, "uploads"))
	require.NoError(t, err)

	srv := api.NewServer(api.Config{
		Notes:       noteSvc,
		Engine:      engine,
		Settings:    settingsSvc,
		Transcriber: stubTranscriber{},
		Uploads:     saver,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return New(ts.URL)
}

func TestNoteLifecycle(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Health())

	created, err := c.CreateNote("", "todo", "buy milk", "")
	require.NoError(t, err)
	assert.Equal(t, "todo", created.Path)
	assert.Equal(t, 1, created.Revision)

	fetched, err := c.GetNote("todo.txt")
	require.NoError(t, err)
	assert.Equal(t, created.NoteID, fetched.NoteID)

	rev := fetched.Revision
	updated, err := c.UpdateNote("todo.txt", "buy milk and eggs", &rev)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Revision)

	// Stale revision is a typed conflict.
	_, err = c.UpdateNote("todo.txt", "clobber", &rev)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "revision_conflict", apiErr.Code)
	assert.Equal(t, 409, apiErr.Status)

	require.NoError(t, c.CreateFolder("archive"))
	renamed, err := c.RenameNote("todo.txt", "groceries")
	require.NoError(t, err)
	assert.Equal(t, "groceries", renamed.Path)
	assert.Equal(t, created.NoteID, renamed.NoteID)

	moved, err := c.MoveNote("groceries.txt", "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive/groceries", moved.Path)
	assert.Equal(t, created.NoteID, moved.NoteID)

	byID, err := c.GetNoteByID(created.NoteID)
	require.NoError(t, err)
	assert.Equal(t, "archive/groceries", byID.Path)

	require.NoError(t, c.DeleteNote("archive/groceries.txt"))
	_, err = c.GetNote("archive/groceries.txt")
	assert.True(t, IsNotFound(err))
}

func TestListNotes(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.CreateFolder("work"))
	_, err := c.CreateNote("work", "plan", "", "")
	require.NoError(t, err)
	_, err = c.CreateNote("", "misc", "", "")
	require.NoError(t, err)

	all, err := c.ListAllNotes()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inWork, err := c.ListNotes("work")
	require.NoError(t, err)
	require.Len(t, inWork, 1)
	assert.Equal(t, "work/plan.txt", inWork[0].Path)
}

func TestReplaceMarker(t *testing.T) {
	c := newTestClient(t)

	note, err := c.CreateNote("", "memo", "start [[tx:1]] end", "")
	require.NoError(t, err)

	result, err := c.ReplaceMarker(note.NoteID, "[[tx:1]]", "spoken words")
	require.NoError(t, err)
	assert.Equal(t, types.ApplyStatusApplied, result.Status)

	again, err := c.ReplaceMarker(note.NoteID, "[[tx:1]]", "twice")
	require.NoError(t, err)
	assert.Equal(t, types.ApplyStatusMarkerMissing, again.Status)
}

func TestFolderOperations(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.CreateFolder("inbox"))
	require.NoError(t, c.CreateFolder("archive"))

	tree, err := c.FolderTree("")
	require.NoError(t, err)
	assert.Len(t, tree.Children, 2)

	newPath, err := c.RenameFolder("inbox", "triage")
	require.NoError(t, err)
	assert.Equal(t, "triage", newPath)

	newPath, err = c.MoveFolder("triage", "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive/triage", newPath)

	require.NoError(t, c.DeleteFolder("archive", true))
	_, err = c.FolderTree("archive")
	assert.True(t, IsNotFound(err))
}

func TestJobOperations(t *testing.T) {
	c := newTestClient(t)

	note, err := c.CreateNote("", "memo", "text [[tx:1]] more", "")
	require.NoError(t, err)

	job, err := c.CreateJob(note.NoteID, "[[tx:1]]", "toolbar", "clip.wav", bytes.NewReader([]byte("RIFFdata")))
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, job.Status)
	assert.Equal(t, "toolbar", job.LaunchSource)

	listed, err := c.ListJobs()
	require.NoError(t, err)
	require.Len(t, listed, 1)

	got, err := c.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	cancelled, err := c.CancelJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCancelled, cancelled.Status)

	resumed, err := c.ResumeInterrupted()
	require.NoError(t, err)
	assert.Equal(t, 0, resumed)

	_, err = c.GetJob("missing")
	assert.True(t, IsNotFound(err))
}

func TestCreateJobUnknownNote(t *testing.T) {
	c := newTestClient(t)

	_, err := c.CreateJob("ghost", "[[tx:1]]", "", "clip.wav", bytes.NewReader([]byte("RIFF")))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestTranscribeAudio(t *testing.T) {
	c := newTestClient(t)

	transcript, err := c.TranscribeAudio("clip.wav", bytes.NewReader([]byte("RIFFdata")))
	require.NoError(t, err)
	assert.Equal(t, "transcribed .wav", transcript.Text)
	assert.Equal(t, "en", transcript.Language)
}

func TestFormats(t *testing.T) {
	c := newTestClient(t)

	formats, maxMB, err := c.Formats()
	require.NoError(t, err)
	assert.Contains(t, formats, ".wav")
	assert.Equal(t, 100, maxMB)
}

func TestSettings(t *testing.T) {
	c := newTestClient(t)

	doc, err := c.GetSettings()
	require.NoError(t, err)
	tx, ok := doc["transcription"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), tx["max_concurrent_jobs"])

	updated, err := c.UpdateSettings(map[string]any{
		"transcription": map[string]any{"max_concurrent_jobs": 4},
	})
	require.NoError(t, err)
	tx, ok = updated["transcription"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), tx["max_concurrent_jobs"])
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	c := New("http://127.0.0.1:8487/")
	assert.Equal(t, "http://127.0.0.1:8487", c.baseURL)
}

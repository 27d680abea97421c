package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJobStatusClassification tests terminal/active status sets
func TestJobStatusClassification(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
		active   bool
	}{
		{JobStatusQueued, false, true},
		{JobStatusRunning, false, true},
		{JobStatusCancelRequested, false, true},
		{JobStatusInterrupted, false, true},
		{JobStatusCompleted, true, false},
		{JobStatusFailed, true, false},
		{JobStatusOrphaned, true, false},
		{JobStatusCancelled, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
			assert.Equal(t, tt.active, tt.status.Active())
		})
	}
}

// TestJobView tests the client affordance flags
func TestJobView(t *testing.T) {
	tests := []struct {
		name       string
		job        Job
		canCancel  bool
		canResume  bool
		canCopy    bool
	}{
		{
			name:      "queued job is cancellable",
			job:       Job{ID: "a", Status: JobStatusQueued},
			canCancel: true,
		},
		{
			name:      "interrupted job is resumable",
			job:       Job{ID: "b", Status: JobStatusInterrupted},
			canCancel: true,
			canResume: true,
		},
		{
			name:    "completed job with transcript is copyable",
			job:     Job{ID: "c", Status: JobStatusCompleted, TranscriptText: "hello"},
			canCopy: true,
		},
		{
			name: "failed job without transcript",
			job:  Job{ID: "d", Status: JobStatusFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := tt.job.View()
			assert.Equal(t, tt.canCancel, view.CanCancel)
			assert.Equal(t, tt.canResume, view.CanResume)
			assert.Equal(t, tt.canCopy, view.CanCopy)
		})
	}
}

// TestJobClone ensures clones do not share pointer fields
func TestJobClone(t *testing.T) {
	dur := int64(1200)
	rev := 3
	job := &Job{
		ID:         "job-1",
		Status:     JobStatusCompleted,
		DurationMS: &dur,
		LastResult: &ApplyResult{
			Status:   ApplyStatusApplied,
			NoteID:   "note-1",
			Revision: &rev,
		},
		NoteRevision: &rev,
	}

	clone := job.Clone()
	*clone.DurationMS = 999
	*clone.LastResult.Revision = 42
	clone.LastResult.Status = ApplyStatusMarkerMissing

	assert.Equal(t, int64(1200), *job.DurationMS)
	assert.Equal(t, 3, *job.LastResult.Revision)
	assert.Equal(t, ApplyStatusApplied, job.LastResult.Status)
}

// TestJobSerializationKeys locks the snapshot field names
func TestJobSerializationKeys(t *testing.T) {
	job := Job{
		ID:          "j1",
		Status:      JobStatusQueued,
		CreatedAt:   "2026-01-02T03:04:05.000000Z",
		UpdatedAt:   "2026-01-02T03:04:05.000000Z",
		AvailableAt: 1767323045.5,
		NoteID:      "n1",
		MarkerToken: "[[tx:x]]",
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{
		"id", "status", "created_at", "updated_at", "available_at",
		"attempts", "restart_requeues", "note_id", "marker_token",
		"cancel_requested",
	} {
		assert.Contains(t, raw, key)
	}
	// Unset nullable fields stay off the wire
	assert.NotContains(t, raw, "duration_ms")
	assert.NotContains(t, raw, "last_result")
	assert.NotContains(t, raw, "note_revision")
}

// TestDefaultTranscriptionSettings locks the documented defaults
func TestDefaultTranscriptionSettings(t *testing.T) {
	s := DefaultTranscriptionSettings()
	assert.Equal(t, 2, s.MaxConcurrentJobs)
	assert.Equal(t, 50, s.MaxQueuedJobs)
	assert.Equal(t, 200, s.HistoryMaxEntries)
	assert.Equal(t, 7, s.HistoryTTLDays)
	assert.Equal(t, 2, s.RetryMax)
	assert.Equal(t, 1500, s.RetryBaseMS)
	assert.True(t, s.AutoRequeueInterrupted)
}

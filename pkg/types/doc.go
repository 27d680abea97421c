/*
Package types defines the core data structures used throughout Murmur.

This package contains the fundamental types that represent Murmur's domain
model: transcription jobs and their lifecycle states, note identity and
revision records, marker-apply results, and the runtime settings surface.
These types are used by all other packages for state management, API
payloads, and persistence.

# Architecture

The types package is the foundation of Murmur's data model. It defines:

  - Job lifecycle (statuses, terminal/active classification)
  - Job records as persisted in the engine snapshot
  - Marker-replacement outcomes (applied, marker_missing, note_deleted)
  - Note identity (stable id + monotonic revision)
  - Note payloads and folder trees as the API returns them
  - Transcription output (text, language, duration)
  - Runtime settings with their defaults

All types are designed to be:
  - Serializable (JSON, snake_case keys matching the on-disk formats)
  - Dependency-free (this package imports nothing outside the stdlib)
  - Self-documenting (typed string enums with const blocks)

# Core Types

Job Lifecycle:
  - Job: One submitted transcription, from admission to pruning
  - JobStatus: queued, running, cancel_requested, cancelled,
    completed, failed, orphaned, interrupted
  - JobView: Job plus client affordances (can_cancel, can_resume,
    can_copy)

Marker Apply:
  - ApplyResult: Where (and whether) a transcript landed
  - ApplyStatus: applied, marker_missing, note_deleted

Note Identity:
  - Identity: Stable note id paired with its current revision

Note Payloads:
  - NoteFile: Filesystem metadata, extension kept, no identity
  - NoteListItem: NoteFile annotated with id and revision
  - Note: Full payload with content, extension-stripped path
  - FolderTree: Recursive folder listing

Settings:
  - TranscriptionSettings: Engine knobs, clamped by pkg/settings
  - DefaultTranscriptionSettings: Values used for absent keys

# State Machine

Jobs follow a state machine:

	queued → running → completed
	  ↓        ↓     ↘ orphaned (marker gone)
	cancelled  ↓     ↘ failed   (note gone, or terminal error)
	           ↓
	    cancel_requested → cancelled
	           ↓
	      interrupted (process exit) → queued (requeue) | cancelled

Valid transitions:
  - queued → running (worker lease)
  - queued|interrupted → cancelled (cancel before run)
  - running → cancel_requested (cooperative cancel)
  - running|cancel_requested → cancelled (checkpoint observed)
  - running → queued (transient failure, delayed retry)
  - running → completed | orphaned | failed (apply outcome)
  - running|cancel_requested → interrupted (restart recovery)
  - interrupted → queued (resume or auto-requeue)

Terminal statuses (completed, failed, orphaned, cancelled) never
re-enter the machine; pruning removes them.

# Field Conventions

Timestamps are ISO-8601 UTC strings; AvailableAt alone is epoch
seconds so the scheduler can compare eligibility against time.Now()
without parsing. Nullable numerics (DurationMS, NoteRevision, apply
revisions) are pointers so absent and zero stay distinguishable in the
snapshot file.

# Usage

Building a job record:

	job := &types.Job{
		ID:          uuid.New().String(),
		Status:      types.JobStatusQueued,
		NoteID:      identity.NoteID,
		MarkerToken: "[[tx:abc]]",
		AudioPath:   "/tmp/uploads/abc.wav",
	}

Classifying a status:

	if job.Status.Terminal() {
		// audio is gone, record is prunable
	}

Serving a job to a client:

	view := job.View() // adds can_cancel / can_resume / can_copy

# Integration Points

This package integrates with:

  - pkg/jobs: persists Job records in the engine snapshot
  - pkg/notes: produces ApplyResult and Note payloads
  - pkg/noteindex: mints Identity values
  - pkg/settings: clamps and persists TranscriptionSettings
  - pkg/transcriber: returns Transcript values
  - pkg/api: serializes all of the above over HTTP

# Thread Safety

Types here are plain data. Mutation must be synchronized by the owning
component (the engine mutex for jobs, the index mutex for identity
records). Clone exists so owners can hand copies across their lock
boundary.
*/
package types

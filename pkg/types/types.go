package types

// JobStatus represents the lifecycle state of a transcription job
type JobStatus string

const (
	JobStatusQueued          JobStatus = "queued"
	JobStatusRunning         JobStatus = "running"
	JobStatusCancelRequested JobStatus = "cancel_requested"
	JobStatusCancelled       JobStatus = "cancelled"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
	JobStatusOrphaned        JobStatus = "orphaned"
	JobStatusInterrupted     JobStatus = "interrupted"
)

// Terminal reports whether the status admits no further transitions
// (other than removal by history pruning).
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusOrphaned, JobStatusCancelled:
		return true
	}
	return false
}

// Active reports whether the job still occupies a queue slot. Active
// jobs count against max_queued_jobs on admission.
func (s JobStatus) Active() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCancelRequested, JobStatusInterrupted:
		return true
	}
	return false
}

// Job represents a single transcription job. Field names follow the
// snapshot file format; timestamps are ISO-8601 UTC strings except
// AvailableAt, which is wall-clock epoch seconds so delayed retries
// can be compared against time.Now() cheaply.
type Job struct {
	ID              string       `json:"id"`
	Status          JobStatus    `json:"status"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
	StartedAt       string       `json:"started_at,omitempty"`
	CompletedAt     string       `json:"completed_at,omitempty"`
	AvailableAt     float64      `json:"available_at"`
	Attempts        int          `json:"attempts"`
	RestartRequeues int          `json:"restart_requeues"`
	NoteID          string       `json:"note_id"`
	NotePath        string       `json:"note_path,omitempty"`
	MarkerToken     string       `json:"marker_token"`
	AudioPath       string       `json:"audio_path,omitempty"`
	SourceFilename  string       `json:"source_filename,omitempty"`
	LaunchSource    string       `json:"launch_source,omitempty"`
	TranscriptText  string       `json:"transcript_text,omitempty"`
	ErrorCode       string       `json:"error_code,omitempty"`
	Error           string       `json:"error,omitempty"`
	DurationMS      *int64       `json:"duration_ms,omitempty"`
	LastResult      *ApplyResult `json:"last_result,omitempty"`
	CancelRequested bool         `json:"cancel_requested"`
	NoteRevision    *int         `json:"note_revision,omitempty"`
}

// Clone returns a deep copy safe to hand out after the engine lock is
// released.
func (j *Job) Clone() *Job {
	c := *j
	if j.DurationMS != nil {
		v := *j.DurationMS
		c.DurationMS = &v
	}
	if j.NoteRevision != nil {
		v := *j.NoteRevision
		c.NoteRevision = &v
	}
	if j.LastResult != nil {
		r := *j.LastResult
		if j.LastResult.Revision != nil {
			rev := *j.LastResult.Revision
			r.Revision = &rev
		}
		c.LastResult = &r
	}
	return &c
}

// View builds the API projection of the job with client affordances.
func (j *Job) View() *JobView {
	return &JobView{
		Job:       *j.Clone(),
		CanCancel: !j.Status.Terminal(),
		CanResume: j.Status == JobStatusInterrupted,
		CanCopy:   j.TranscriptText != "",
	}
}

// JobView is the serialized form of a job returned by the API
type JobView struct {
	Job
	CanCancel bool `json:"can_cancel"`
	CanResume bool `json:"can_resume"`
	CanCopy   bool `json:"can_copy"`
}

// ApplyStatus is the outcome of a marker-replacement attempt
type ApplyStatus string

const (
	ApplyStatusApplied       ApplyStatus = "applied"
	ApplyStatusMarkerMissing ApplyStatus = "marker_missing"
	ApplyStatusNoteDeleted   ApplyStatus = "note_deleted"
)

// ApplyResult describes where (and whether) a transcript landed
type ApplyResult struct {
	Status   ApplyStatus `json:"status"`
	NoteID   string      `json:"note_id"`
	NotePath string      `json:"note_path,omitempty"`
	Revision *int        `json:"revision,omitempty"`
}

// Identity binds a stable note id to its current revision
type Identity struct {
	NoteID   string `json:"note_id"`
	Revision int    `json:"revision"`
}

// NoteFile is filesystem metadata for a note, as the note store sees
// it. Path keeps its extension; identity is attached one layer up.
type NoteFile struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	FileType   string `json:"file_type"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
}

// NoteListItem is a NoteFile annotated with identity for listings
type NoteListItem struct {
	NoteFile
	NoteID   string `json:"id"`
	Revision int    `json:"revision"`
}

// Note is a full note payload returned by the note service. Path is
// extension-stripped (the canonical index form).
type Note struct {
	NoteID     string `json:"id"`
	Path       string `json:"path"`
	Name       string `json:"name"`
	FileType   string `json:"file_type"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Revision   int    `json:"revision"`
}

// FolderTree is a recursive folder listing. Notes are raw file
// entries; dot-directories are skipped.
type FolderTree struct {
	Path     string        `json:"path"`
	Name     string        `json:"name"`
	Children []*FolderTree `json:"children"`
	Notes    []NoteFile    `json:"notes"`
}

// Transcript is the output of one transcription run
type Transcript struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// TranscriptionSettings configures the job engine at runtime. All
// integer fields are clamped into their declared ranges by the
// settings service before the engine sees them.
type TranscriptionSettings struct {
	MaxConcurrentJobs      int  `json:"max_concurrent_jobs"`
	MaxQueuedJobs          int  `json:"max_queued_jobs"`
	HistoryMaxEntries      int  `json:"history_max_entries"`
	HistoryTTLDays         int  `json:"history_ttl_days"`
	RetryMax               int  `json:"retry_max"`
	RetryBaseMS            int  `json:"retry_base_ms"`
	AutoRequeueInterrupted bool `json:"auto_requeue_interrupted"`
}

// DefaultTranscriptionSettings returns the settings used when the
// settings file is absent or a key is missing.
func DefaultTranscriptionSettings() TranscriptionSettings {
	return TranscriptionSettings{
		MaxConcurrentJobs:      2,
		MaxQueuedJobs:          50,
		HistoryMaxEntries:      200,
		HistoryTTLDays:         7,
		RetryMax:               2,
		RetryBaseMS:            1500,
		AutoRequeueInterrupted: true,
	}
}

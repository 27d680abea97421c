package jobs

import (
	"sort"

	"github.com/google/uuid"

	"github.com/murmurnotes/murmur/pkg/events"
	"github.com/murmurnotes/murmur/pkg/metrics"
	"github.com/murmurnotes/murmur/pkg/timeutil"
	"github.com/murmurnotes/murmur/pkg/types"
)

// CreateParams describes a job admission request.
type CreateParams struct {
	NoteID         string
	MarkerToken    string
	AudioPath      string
	SourceFilename string
	LaunchSource   string
}

// CreateJob admits a job to the queue. Admission fails when active
// jobs already fill max_queued_jobs or the target note is unknown; a
// failed snapshot write rolls the admission back so memory and disk
// stay in step.
func (e *Engine) CreateJob(p CreateParams) (*types.JobView, error) {
	if p.LaunchSource == "" {
		p.LaunchSource = "drop"
	}
	s := e.settings.Transcription()

	e.mu.Lock()
	defer e.mu.Unlock()

	active := 0
	for _, job := range e.state.Jobs {
		if job.Status.Active() {
			active++
		}
	}
	if active >= s.MaxQueuedJobs {
		return nil, ErrQueueFull
	}

	notePath, ok := e.notes.ResolveNotePath(p.NoteID)
	if !ok {
		return nil, ErrTargetNoteNotFound
	}

	now := timeutil.NowISO()
	job := &types.Job{
		ID:             uuid.New().String(),
		Status:         types.JobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
		NoteID:         p.NoteID,
		NotePath:       notePath,
		MarkerToken:    p.MarkerToken,
		AudioPath:      p.AudioPath,
		SourceFilename: p.SourceFilename,
		LaunchSource:   p.LaunchSource,
	}
	e.state.Jobs[job.ID] = job
	e.queueJobLocked(job.ID, 0)
	e.pruneHistoryLocked()

	if err := e.persistLocked(events.EventJobCreated, map[string]any{
		"job_id":  job.ID,
		"note_id": job.NoteID,
	}); err != nil {
		e.removeJobLocked(job.ID)
		return nil, err
	}

	e.logger.Info().Str("job_id", job.ID).Str("note_id", job.NoteID).Str("source", job.LaunchSource).Msg("job queued")
	return e.serializeLocked(job), nil
}

// GetJob returns one job by id.
func (e *Engine) GetJob(jobID string) (*types.JobView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.state.Jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return e.serializeLocked(job), nil
}

// ListJobs returns every job, newest first.
func (e *Engine) ListJobs() []*types.JobView {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]*types.JobView, 0, len(e.state.Jobs))
	for _, job := range e.state.Jobs {
		views = append(views, e.serializeLocked(job))
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt > views[j].CreatedAt
	})
	return views
}

// CancelJob requests cancellation. A job that has not started is
// cancelled on the spot; a running job is flagged and honors the
// request at its next checkpoint. Terminal jobs are returned
// unchanged.
func (e *Engine) CancelJob(jobID string) (*types.JobView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.state.Jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	switch {
	case job.Status.Terminal():
	case job.Status == types.JobStatusQueued, job.Status == types.JobStatusInterrupted:
		e.markCancelledLocked(job, CodeCancelledBeforeRun)
		if err := e.persistLocked(events.EventJobCancelled, map[string]any{"job_id": job.ID}); err != nil {
			return nil, err
		}
		e.logger.Info().Str("job_id", job.ID).Msg("job cancelled before run")
	default:
		job.CancelRequested = true
		job.Status = types.JobStatusCancelRequested
		job.UpdatedAt = timeutil.NowISO()
		if err := e.persistLocked(events.EventJobCancelRequested, map[string]any{"job_id": job.ID}); err != nil {
			return nil, err
		}
		e.logger.Info().Str("job_id", job.ID).Msg("job cancel requested")
	}
	return e.serializeLocked(job), nil
}

// ResumeJob puts one interrupted job back on the queue. Any other
// status is ErrInvalidState.
func (e *Engine) ResumeJob(jobID string) (*types.JobView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.state.Jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != types.JobStatusInterrupted {
		return nil, ErrInvalidState
	}

	e.resumeLocked(job)
	if err := e.persistLocked(events.EventJobResumed, map[string]any{"job_id": job.ID}); err != nil {
		return nil, err
	}
	e.logger.Info().Str("job_id", job.ID).Msg("job resumed")
	return e.serializeLocked(job), nil
}

// ResumeInterrupted requeues every interrupted job and reports how
// many it touched.
func (e *Engine) ResumeInterrupted() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var stuck []*types.Job
	for _, job := range e.state.Jobs {
		if job.Status == types.JobStatusInterrupted {
			stuck = append(stuck, job)
		}
	}
	if len(stuck) == 0 {
		return 0, nil
	}
	sort.Slice(stuck, func(i, j int) bool {
		return stuck[i].CreatedAt < stuck[j].CreatedAt
	})
	for _, job := range stuck {
		e.resumeLocked(job)
	}

	if err := e.persistLocked(events.EventJobsResumedAll, map[string]any{"count": len(stuck)}); err != nil {
		return 0, err
	}
	e.logger.Info().Int("count", len(stuck)).Msg("resumed interrupted jobs")
	return len(stuck), nil
}

// resumeLocked clears the interruption record and requeues. Attempts
// and the restart-requeue budget carry over; a manual resume is not a
// free retry. Caller holds the lock.
func (e *Engine) resumeLocked(job *types.Job) {
	job.ErrorCode = ""
	job.Error = ""
	job.CancelRequested = false
	e.queueJobLocked(job.ID, 0)
}

// markCancelledLocked settles a job as cancelled and releases its
// audio. Caller holds the lock and persists.
func (e *Engine) markCancelledLocked(job *types.Job, code string) {
	now := timeutil.NowISO()
	job.Status = types.JobStatusCancelled
	job.UpdatedAt = now
	job.CompletedAt = now
	job.ErrorCode = code
	job.Error = "Job cancelled"
	job.CancelRequested = false
	e.removeFromQueueLocked(job.ID)
	e.cleanupAudio(job.AudioPath)
	metrics.JobsTerminalTotal.WithLabelValues(string(types.JobStatusCancelled)).Inc()
	e.pruneHistoryLocked()
}

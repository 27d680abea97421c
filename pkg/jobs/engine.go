package jobs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/events"
	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/metrics"
	"github.com/murmurnotes/murmur/pkg/storage"
	"github.com/murmurnotes/murmur/pkg/timeutil"
	"github.com/murmurnotes/murmur/pkg/transcriber"
	"github.com/murmurnotes/murmur/pkg/types"
)

var (
	// ErrQueueFull and ErrTargetNoteNotFound carry their user-facing
	// admission messages verbatim.
	ErrQueueFull          = errors.New("Transcription queue is full")
	ErrTargetNoteNotFound = errors.New("Target note not found")

	ErrJobNotFound  = errors.New("job not found")
	ErrInvalidState = errors.New("job is not in a resumable state")
)

// Error codes recorded on job records.
const (
	CodeCancelBeforeStart   = "cancel_requested_before_start"
	CodeCancelDuringRun     = "cancel_requested_during_run"
	CodeCancelledBeforeRun  = "cancelled_before_run"
	CodeRestartInterrupted  = "restart_interrupted"
	CodeTransientError      = "transient_error"
	CodeTranscriptionError  = "transcription_error"
	CodeMarkerMissing       = "marker_missing"
	CodeTargetNoteMissing   = "target_note_missing"
)

const (
	snapshotFile = "transcription_jobs.snapshot.json"

	// EventsFile is the engine's JSONL event log name within the
	// state directory.
	EventsFile = "transcription_jobs.events.jsonl"

	transcriptsDir = "transcripts"

	// pollInterval is how long an idle worker sleeps before rescanning
	// the queue.
	pollInterval = 200 * time.Millisecond

	maxWorkerSlots     = 16
	defaultWorkerSlots = 8
)

// NoteService is the engine's view of the note layer: resolve a note
// id to its current path, and land text on a marker. Both calls are
// made with no engine lock held.
type NoteService interface {
	ReplaceMarker(noteID, markerToken, replacement string) (*types.ApplyResult, error)
	ResolveNotePath(noteID string) (string, bool)
}

// SettingsSource yields the current engine settings. Read on every
// scheduling decision so changes apply live.
type SettingsSource interface {
	Transcription() types.TranscriptionSettings
}

// state is the snapshot document. Jobs is authoritative; Queue holds
// the ids of queued jobs in FIFO order.
type state struct {
	Version   int                   `json:"version"`
	CreatedAt string                `json:"created_at"`
	UpdatedAt string                `json:"updated_at"`
	Jobs      map[string]*types.Job `json:"jobs"`
	Queue     []string              `json:"queue"`
}

func emptyState() *state {
	now := timeutil.NowISO()
	return &state{
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		Jobs:      map[string]*types.Job{},
		Queue:     []string{},
	}
}

// Config wires an Engine's dependencies.
type Config struct {
	Store       storage.Store
	Events      *events.Log
	Notes       NoteService
	Settings    SettingsSource
	Transcriber transcriber.Transcriber

	// WorkerSlots is the number of worker goroutines, clamped to
	// [1, 16]. Zero means the default of 8. The effective concurrency
	// is further limited at runtime by max_concurrent_jobs.
	WorkerSlots int
}

// Engine runs durable asynchronous transcription jobs: a FIFO ready
// queue, a fixed worker pool, exponential-backoff retries, restart
// recovery, and history pruning. One mutex guards the in-memory state
// and its on-disk snapshot; every transition persists before the
// mutation is acknowledged.
type Engine struct {
	mu       sync.Mutex
	state    *state
	store    storage.Store
	events   *events.Log
	notes    NoteService
	settings SettingsSource
	tr       transcriber.Transcriber

	workerSlots int
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	logger      zerolog.Logger
}

// NewEngine loads the snapshot and runs restart recovery: jobs that
// were mid-run when the previous process died become interrupted and,
// policy permitting, are requeued once. Workers do not start until
// Start is called.
func NewEngine(cfg Config) (*Engine, error) {
	slots := cfg.WorkerSlots
	if slots == 0 {
		slots = defaultWorkerSlots
	}
	if slots < 1 {
		slots = 1
	}
	if slots > maxWorkerSlots {
		slots = maxWorkerSlots
	}

	e := &Engine{
		store:       cfg.Store,
		events:      cfg.Events,
		notes:       cfg.Notes,
		settings:    cfg.Settings,
		tr:          cfg.Transcriber,
		workerSlots: slots,
		stopCh:      make(chan struct{}),
		logger:      log.WithComponent("jobs"),
	}

	e.loadState()
	if err := e.recover(); err != nil {
		return nil, err
	}
	return e, nil
}

// Start launches the worker pool.
func (e *Engine) Start() {
	for i := 0; i < e.workerSlots; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
	e.logger.Info().Int("workers", e.workerSlots).Msg("job engine started")
}

// Stop signals the workers and waits for them. A worker in the middle
// of a run finishes that run first; anything left running at process
// kill becomes the next boot's recovery input.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	e.wg.Wait()
	e.logger.Info().Msg("job engine stopped")
}

// loadState reads the snapshot. Absent or corrupt files start the
// engine empty; queue ids without a job record are dropped.
func (e *Engine) loadState() {
	loaded := emptyState()
	err := e.store.LoadJSON(snapshotFile, loaded)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		loaded = emptyState()
	default:
		e.logger.Warn().Err(err).Msg("job snapshot unreadable, starting empty")
		loaded = emptyState()
	}
	if loaded.Jobs == nil {
		loaded.Jobs = map[string]*types.Job{}
	}

	queue := make([]string, 0, len(loaded.Queue))
	for _, id := range loaded.Queue {
		if _, ok := loaded.Jobs[id]; ok {
			queue = append(queue, id)
		}
	}
	loaded.Queue = queue
	e.state = loaded
}

// recover moves every job that was mid-run at the last shutdown to
// interrupted and requeues it when policy allows: automatic requeue
// enabled, not already requeued by a previous restart, and attempt
// budget left.
func (e *Engine) recover() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.settings.Transcription()
	now := timeutil.NowISO()

	var midRun []*types.Job
	for _, job := range e.state.Jobs {
		if job.Status == types.JobStatusRunning || job.Status == types.JobStatusCancelRequested {
			midRun = append(midRun, job)
		}
	}
	// Requeue in creation order so recovery preserves FIFO.
	sort.Slice(midRun, func(i, j int) bool {
		return midRun[i].CreatedAt < midRun[j].CreatedAt
	})

	interrupted, requeued := 0, 0
	for _, job := range midRun {
		job.Status = types.JobStatusInterrupted
		job.UpdatedAt = now
		job.ErrorCode = CodeRestartInterrupted
		job.Error = "Job interrupted by backend restart"
		job.CancelRequested = false
		interrupted++

		if s.AutoRequeueInterrupted && job.RestartRequeues < 1 && job.Attempts <= s.RetryMax {
			job.RestartRequeues++
			e.queueJobLocked(job.ID, 0)
			requeued++
		}
	}

	e.pruneHistoryLocked()
	if err := e.persistLocked(events.EventJobsRecovered, map[string]any{
		"interrupted": interrupted,
		"requeued":    requeued,
	}); err != nil {
		return fmt.Errorf("failed to persist recovered state: %w", err)
	}

	if interrupted > 0 {
		metrics.JobsRecoveredTotal.Add(float64(interrupted))
		e.logger.Info().Int("interrupted", interrupted).Int("requeued", requeued).Msg("recovered jobs after restart")
	}
	return nil
}

// persistLocked writes the snapshot, then appends the event. The
// snapshot is authoritative, so it goes first; the event append is
// best-effort inside the log. Caller holds the lock.
func (e *Engine) persistLocked(event events.EventType, data map[string]any) error {
	e.state.UpdatedAt = timeutil.NowISO()
	if err := e.store.SaveJSON(snapshotFile, e.state); err != nil {
		return fmt.Errorf("failed to persist job snapshot: %w", err)
	}
	if event != "" {
		e.events.Append(event, data)
	}
	return nil
}

// persistBestEffort is persistLocked for worker paths, where there is
// no caller to return the error to.
func (e *Engine) persistBestEffort(event events.EventType, data map[string]any) {
	if err := e.persistLocked(event, data); err != nil {
		e.logger.Error().Err(err).Str("event", string(event)).Msg("failed to persist job state")
	}
}

// queueJobLocked puts a job (back) on the ready queue. A positive
// delay defers eligibility without changing FIFO position among
// equally-eligible jobs. Caller holds the lock.
func (e *Engine) queueJobLocked(jobID string, delayMS int) {
	job, ok := e.state.Jobs[jobID]
	if !ok {
		return
	}
	job.AvailableAt = timeutil.NowUnix()
	if delayMS > 0 {
		job.AvailableAt += float64(delayMS) / 1000.0
	}
	if !e.queuedLocked(jobID) {
		e.state.Queue = append(e.state.Queue, jobID)
	}
	job.Status = types.JobStatusQueued
	job.UpdatedAt = timeutil.NowISO()
}

func (e *Engine) queuedLocked(jobID string) bool {
	for _, id := range e.state.Queue {
		if id == jobID {
			return true
		}
	}
	return false
}

func (e *Engine) removeFromQueueLocked(jobID string) {
	for i, id := range e.state.Queue {
		if id == jobID {
			e.state.Queue = append(e.state.Queue[:i], e.state.Queue[i+1:]...)
			return
		}
	}
}

// removeJobLocked erases a job record and its queue entry.
func (e *Engine) removeJobLocked(jobID string) {
	delete(e.state.Jobs, jobID)
	e.removeFromQueueLocked(jobID)
}

// completionTime pins a terminal job on the timeline for pruning:
// completed_at, else updated_at, else created_at. Unparseable stamps
// count as "just now" so a mangled record is kept rather than
// silently dropped.
func completionTime(job *types.Job) time.Time {
	for _, stamp := range []string{job.CompletedAt, job.UpdatedAt, job.CreatedAt} {
		if stamp == "" {
			continue
		}
		if t, err := timeutil.Parse(stamp); err == nil {
			return t
		}
		break
	}
	return time.Now().UTC()
}

// pruneHistoryLocked drops terminal jobs past the TTL, then keeps only
// the newest history_max_entries of what remains. Non-terminal jobs
// are never touched. Caller holds the lock.
func (e *Engine) pruneHistoryLocked() {
	s := e.settings.Transcription()
	cutoff := time.Now().UTC().AddDate(0, 0, -s.HistoryTTLDays)

	for id, job := range e.state.Jobs {
		if job.Status.Terminal() && completionTime(job).Before(cutoff) {
			e.removeJobLocked(id)
		}
	}

	type entry struct {
		id string
		at time.Time
	}
	var terminal []entry
	for id, job := range e.state.Jobs {
		if job.Status.Terminal() {
			terminal = append(terminal, entry{id: id, at: completionTime(job)})
		}
	}
	if len(terminal) <= s.HistoryMaxEntries {
		return
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].at.After(terminal[j].at)
	})
	for _, en := range terminal[s.HistoryMaxEntries:] {
		e.removeJobLocked(en.id)
	}
}

// cleanupAudio deletes a job's scratch audio file. Missing files are
// fine; anything else is logged and abandoned.
func (e *Engine) cleanupAudio(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		e.logger.Warn().Err(err).Str("path", path).Msg("failed to remove job audio")
	}
}

// saveTranscriptLocked writes the transcript to a side file so the
// text outlives history pruning when it could not be applied to its
// note. Best-effort.
func (e *Engine) saveTranscriptLocked(jobID, text string) {
	name := transcriptsDir + "/" + jobID + ".txt"
	if err := e.store.SaveText(name, text); err != nil {
		e.logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to save transcript side file")
	}
}

// serializeLocked builds the API view, refreshing note_path through
// the index so a renamed note shows its current location. Caller
// holds the lock.
func (e *Engine) serializeLocked(job *types.Job) *types.JobView {
	view := job.View()
	if job.NoteID != "" {
		if path, ok := e.notes.ResolveNotePath(job.NoteID); ok {
			view.NotePath = path
		}
	}
	return view
}

// JobCounts reports jobs by status and the ready-queue depth, for the
// metrics collector.
func (e *Engine) JobCounts() (map[types.JobStatus]int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	byStatus := map[types.JobStatus]int{}
	for _, job := range e.state.Jobs {
		byStatus[job.Status]++
	}
	depth := 0
	for _, id := range e.state.Queue {
		if _, ok := e.state.Jobs[id]; ok {
			depth++
		}
	}
	return byStatus, depth
}

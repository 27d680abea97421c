package jobs

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/murmurnotes/murmur/pkg/events"
	"github.com/murmurnotes/murmur/pkg/metrics"
	"github.com/murmurnotes/murmur/pkg/timeutil"
	"github.com/murmurnotes/murmur/pkg/transcriber"
	"github.com/murmurnotes/murmur/pkg/types"
)

// worker is one slot's scheduling loop: lease, run, repeat, with a
// short sleep when the queue has nothing eligible.
func (e *Engine) worker(slot int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		jobID := e.lease(slot)
		if jobID == "" {
			select {
			case <-e.stopCh:
				return
			case <-time.After(pollInterval):
			}
			continue
		}
		e.run(jobID)
	}
}

// lease claims the first eligible queued job: FIFO order, skipping
// jobs whose retry delay has not elapsed. Slots at or past the live
// max_concurrent_jobs setting lease nothing, so lowering the setting
// idles the upper slots without restarting the pool. Dangling queue
// ids are dropped during the scan. Returns the claimed job id, or ""
// when nothing is eligible.
func (e *Engine) lease(slot int) string {
	if slot >= e.settings.Transcription().MaxConcurrentJobs {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := timeutil.NowUnix()
	remaining := e.state.Queue[:0]
	var claimed *types.Job
	for _, id := range e.state.Queue {
		job, ok := e.state.Jobs[id]
		if !ok {
			continue
		}
		if claimed == nil && job.Status == types.JobStatusQueued && job.AvailableAt <= now {
			claimed = job
			continue
		}
		remaining = append(remaining, id)
	}
	e.state.Queue = remaining
	if claimed == nil {
		return ""
	}

	claimed.Status = types.JobStatusRunning
	claimed.Attempts++
	claimed.StartedAt = timeutil.NowISO()
	claimed.UpdatedAt = claimed.StartedAt
	claimed.CancelRequested = false
	e.persistBestEffort(events.EventJobStarted, map[string]any{"job_id": claimed.ID})
	e.logger.Debug().Str("job_id", claimed.ID).Int("attempt", claimed.Attempts).Msg("job leased")
	return claimed.ID
}

// run drives one leased job to a terminal state or a retry. The
// engine lock is never held across the transcriber or the note
// service. Cancellation is cooperative: a checkpoint before the
// transcriber starts and one before the transcript lands. The first
// checkpoint tests the flag ahead of the status guard so a cancel
// that arrives between lease and here settles instead of wedging in
// cancel_requested.
func (e *Engine) run(jobID string) {
	e.mu.Lock()
	job, ok := e.state.Jobs[jobID]
	if !ok {
		e.mu.Unlock()
		return
	}
	if job.CancelRequested || job.Status == types.JobStatusCancelRequested {
		e.markCancelledLocked(job, CodeCancelBeforeStart)
		e.persistBestEffort(events.EventJobCancelled, map[string]any{"job_id": jobID})
		e.mu.Unlock()
		return
	}
	if job.Status != types.JobStatusRunning {
		e.mu.Unlock()
		return
	}
	audioPath := job.AudioPath
	e.mu.Unlock()

	timer := metrics.NewTimer()
	transcript, err := e.tr.Transcribe(context.Background(), audioPath)
	timer.ObserveDuration(metrics.TranscriptionDuration)
	if err != nil {
		e.handleRunError(jobID, err)
		return
	}

	e.mu.Lock()
	job, ok = e.state.Jobs[jobID]
	if !ok {
		e.mu.Unlock()
		return
	}
	if job.CancelRequested || job.Status == types.JobStatusCancelRequested {
		e.markCancelledLocked(job, CodeCancelDuringRun)
		e.persistBestEffort(events.EventJobCancelled, map[string]any{"job_id": jobID})
		e.mu.Unlock()
		return
	}
	job.TranscriptText = transcript.Text
	if transcript.Duration > 0 {
		ms := int64(transcript.Duration * 1000)
		job.DurationMS = &ms
	}
	noteID, marker := job.NoteID, job.MarkerToken
	e.mu.Unlock()

	result, err := e.notes.ReplaceMarker(noteID, marker, transcript.Text)
	if err != nil {
		e.handleRunError(jobID, err)
		return
	}
	e.finish(jobID, result)
}

// finish records the apply outcome. applied completes the job;
// marker_missing orphans it with the transcript parked in a side
// file; note_deleted fails it the same way.
func (e *Engine) finish(jobID string, result *types.ApplyResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.state.Jobs[jobID]
	if !ok {
		return
	}

	now := timeutil.NowISO()
	job.UpdatedAt = now
	job.CompletedAt = now
	job.LastResult = result
	job.CancelRequested = false

	var event events.EventType
	switch result.Status {
	case types.ApplyStatusApplied:
		job.Status = types.JobStatusCompleted
		job.NotePath = result.NotePath
		job.NoteRevision = result.Revision
		event = events.EventJobCompleted
	case types.ApplyStatusMarkerMissing:
		job.Status = types.JobStatusOrphaned
		job.ErrorCode = CodeMarkerMissing
		job.Error = "Marker token missing in target note"
		e.saveTranscriptLocked(job.ID, job.TranscriptText)
		event = events.EventJobOrphaned
	default:
		job.Status = types.JobStatusFailed
		job.ErrorCode = CodeTargetNoteMissing
		job.Error = "Target note was deleted before apply"
		e.saveTranscriptLocked(job.ID, job.TranscriptText)
		event = events.EventJobFailed
	}

	e.cleanupAudio(job.AudioPath)
	metrics.JobsTerminalTotal.WithLabelValues(string(job.Status)).Inc()
	e.pruneHistoryLocked()
	e.persistBestEffort(event, map[string]any{"job_id": job.ID})
	e.logger.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("job finished")
}

// handleRunError retries transient failures with exponential backoff
// while attempts remain, keeping the audio for the next try; anything
// else settles the job as failed and splices a short notice over the
// marker.
func (e *Engine) handleRunError(jobID string, cause error) {
	e.mu.Lock()

	job, ok := e.state.Jobs[jobID]
	if !ok {
		e.mu.Unlock()
		return
	}

	s := e.settings.Transcription()
	if transcriber.IsTransient(cause) && job.Attempts <= s.RetryMax {
		delay := s.RetryBaseMS << (job.Attempts - 1)
		job.ErrorCode = CodeTransientError
		job.Error = cause.Error()
		e.queueJobLocked(job.ID, delay)
		metrics.JobRetriesTotal.Inc()
		e.persistBestEffort(events.EventJobRetry, map[string]any{"job_id": job.ID, "delay_ms": delay})
		e.logger.Warn().Err(cause).Str("job_id", job.ID).Int("delay_ms", delay).Msg("transient failure, retrying")
		e.mu.Unlock()
		return
	}

	now := timeutil.NowISO()
	job.Status = types.JobStatusFailed
	job.UpdatedAt = now
	job.CompletedAt = now
	job.ErrorCode = CodeTranscriptionError
	job.Error = cause.Error()
	e.cleanupAudio(job.AudioPath)
	metrics.JobsTerminalTotal.WithLabelValues(string(types.JobStatusFailed)).Inc()
	e.pruneHistoryLocked()
	e.persistBestEffort(events.EventJobFailed, map[string]any{"job_id": job.ID})
	e.logger.Error().Err(cause).Str("job_id", job.ID).Msg("job failed")
	noteID, marker := job.NoteID, job.MarkerToken
	e.mu.Unlock()

	e.spliceFailurePlaceholder(jobID, noteID, marker, cause)
}

// spliceFailurePlaceholder lands a short failure notice on the marker
// so the note is not left holding a dead token. Best-effort: a
// missing marker or note changes nothing.
func (e *Engine) spliceFailurePlaceholder(jobID, noteID, marker string, cause error) {
	result, err := e.notes.ReplaceMarker(noteID, marker, failurePlaceholder(cause))
	if err != nil || result.Status != types.ApplyStatusApplied {
		return
	}

	e.mu.Lock()
	if job, ok := e.state.Jobs[jobID]; ok {
		job.LastResult = result
		job.NotePath = result.NotePath
		job.NoteRevision = result.Revision
		job.UpdatedAt = timeutil.NowISO()
		e.persistBestEffort("", nil)
	}
	e.mu.Unlock()
}

// failurePlaceholder renders the inline failure notice: whitespace
// collapsed and capped at 180 characters so a multi-line stderr dump
// cannot wreck the note.
func failurePlaceholder(cause error) string {
	msg := "Unknown transcription error"
	if cause != nil {
		if collapsed := strings.Join(strings.Fields(cause.Error()), " "); collapsed != "" {
			msg = collapsed
		}
	}
	if utf8.RuneCountInString(msg) > 180 {
		msg = string([]rune(msg)[:177]) + "..."
	}
	return "[Transcription failed: " + msg + "]"
}

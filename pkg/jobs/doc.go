/*
Package jobs is Murmur's asynchronous transcription engine: a durable
job queue, a bounded worker pool, cooperative cancellation,
exponential-backoff retries, restart recovery, and history pruning.

A job binds an uploaded audio file to a marker token inside a target
note. Workers transcribe the audio and hand the text to the note
service, which splices it over the marker wherever the note lives by
then.

# Architecture

	┌────────────────────── JOB ENGINE ──────────────────────────┐
	│                                                             │
	│  CreateJob ──▶ admission (queue cap, note exists)           │
	│                   │                                         │
	│                   ▼                                         │
	│  Queue [id, id, …]  FIFO, available_at gates retries        │
	│                   │                                         │
	│                   ▼                                         │
	│  worker(slot) ──▶ lease ──▶ transcribe ──▶ apply            │
	│     ▲                │           │            │             │
	│     │           checkpoint 1  checkpoint 2    ▼             │
	│   200ms poll      (cancel)     (cancel)    terminal         │
	│                                                             │
	│  Every transition: snapshot write + event append            │
	└─────────────────────────────────────────────────────────────┘

# Job Lifecycle

	queued ──▶ running ──▶ completed          transcript applied
	   │          │   └──▶ orphaned           marker gone
	   │          │   └──▶ failed             note gone, or error
	   │          │   └──▶ queued             transient error, delayed
	   │          ▼
	   │      cancel_requested ──▶ cancelled  at next checkpoint
	   └────▶ cancelled                       before start

	restart: running ──▶ interrupted ──▶ queued (once, automatic)
	                              └────▶ queued (manual resume)

Terminal states are completed, failed, orphaned, and cancelled. Only
terminal jobs are ever pruned; everything else counts against the
admission cap.

# Durability

The snapshot (transcription_jobs.snapshot.json) is written atomically
before any mutation is acknowledged, so a crash loses at most the
in-flight transition. On boot the engine reloads the snapshot, marks
every job that was mid-run as interrupted, and requeues each one once
when auto_requeue_interrupted allows. The event log
(transcription_jobs.events.jsonl) is derived observability, never
read back.

# Concurrency

One mutex guards the whole state. Workers hold it only for scheduling
decisions and record updates; transcription and marker replacement
run unlocked, which is what makes the cancel checkpoints meaningful.
The pool size is fixed at startup, but each slot rechecks
max_concurrent_jobs before leasing, so the effective concurrency
follows the settings file live.

# Retries

A transient failure (timeouts, network errors, 5xx from a remote
backend) requeues the job with delay retry_base_ms * 2^(attempts-1)
while attempts <= retry_max, keeping the audio file. Any other
failure is terminal: the audio is deleted and a short
"[Transcription failed: …]" notice is spliced over the marker so the
note is not left holding a dead token.

Orphaned and note-deleted outcomes park the transcript in
transcripts/<job-id>.txt so the text survives history pruning.

# Integration Points

This package integrates with:

  - pkg/transcriber: audio to text
  - pkg/notes: marker replacement and note path resolution
  - pkg/settings: live engine tuning
  - pkg/storage: snapshot and transcript persistence
  - pkg/events: the transition log
  - pkg/metrics: terminal counters and the JobCounts gauge source
*/
package jobs

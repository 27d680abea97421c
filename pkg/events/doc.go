/*
Package events provides the append-only event log for Murmur's job
engine.

Every job transition appends one JSON line to an event file in the
state directory. The log is pure observability: the engine snapshot is
authoritative on reload, and the log exists so a user (or a bug
report) can reconstruct what happened to a job after the fact.

# Architecture

	┌──────────────────── EVENT LOG ────────────────────────────┐
	│                                                             │
	│  Engine mutation                                            │
	│       │                                                     │
	│       ▼                                                     │
	│  log.Append(event, data)                                    │
	│       │         marshal {ts, iso, event, data}              │
	│       ▼                                                     │
	│  O_APPEND write of one line                                 │
	│       │                                                     │
	│       ▼                                                     │
	│  transcription_jobs.events.jsonl                            │
	│                                                             │
	│  Failure path: warn log, event dropped, mutation unaffected │
	└─────────────────────────────────────────────────────────────┘

# Line Format

One JSON object per line:

	{"ts": 1767323045.123456, "iso": "2026-01-02T03:04:05.123456Z",
	 "event": "tx.job.started", "data": {"job_id": "…", "attempts": 1}}

ts is epoch seconds (float, microsecond precision), iso is the same
instant in the shared persistence layout.

# Event Catalog

Job lifecycle:
  - tx.job.created: admission succeeded, job queued
  - tx.job.started: worker leased the job
  - tx.job.completed: transcript applied to the note
  - tx.job.orphaned: apply ran but the marker was gone
  - tx.job.failed: terminal failure (note deleted, or error after retries)
  - tx.job.retry: transient failure, requeued with delay

Cancellation and resume:
  - tx.job.cancel_requested: cancel flagged on a running job
  - tx.job.cancelled: cancel took effect
  - tx.job.resumed: one interrupted job manually requeued
  - tx.jobs.resumed.interrupted: bulk resume, with count

Recovery:
  - tx.jobs.recovered: restart recovery summary (interrupted and
    requeued counts)

# Delivery Semantics

Appends are best-effort by contract. A full disk or a permissions
problem must never fail the job mutation that produced the event, so
Append logs a warning and drops the line instead of returning an
error. Consumers needing guaranteed state read the snapshot.

# Usage

	eventLog := events.NewLog(store, "transcription_jobs.events.jsonl")
	eventLog.Append(events.EventJobCreated, map[string]any{
		"job_id":  job.ID,
		"note_id": job.NoteID,
	})

# Integration Points

This package integrates with:

  - pkg/jobs: the only producer
  - pkg/storage: the AppendLine writer
*/
package events

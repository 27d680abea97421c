/*
Package metrics provides Prometheus instrumentation for Murmur.

The metrics package defines counters, gauges, and histograms for the
job engine, the note index, and the HTTP API, plus a Collector that
periodically samples component state into gauges and a small Timer for
histogram observations. Metrics are exposed at /metrics through the
standard promhttp handler.

# Architecture

	┌──────────────────── METRICS PIPELINE ─────────────────────┐
	│                                                             │
	│  Direct instrumentation            Sampled gauges           │
	│  ────────────────────              ──────────────           │
	│  pkg/jobs:                         Collector (15s tick)     │
	│    JobsTerminalTotal.Inc()           │                      │
	│    JobRetriesTotal.Inc()             ├─ JobSource           │
	│    TranscriptionDuration             │    murmur_jobs_total │
	│  pkg/notes:                          │    murmur_queue_depth│
	│    RevisionConflictsTotal            └─ NoteSource          │
	│    MarkerApplyDuration                    murmur_index_     │
	│  pkg/api:                                 notes_total       │
	│    APIRequestsTotal                                         │
	│    APIRequestDuration                                       │
	│       │                                                     │
	│       ▼                                                     │
	│  prometheus.MustRegister (init) → promhttp → GET /metrics  │
	└─────────────────────────────────────────────────────────────┘

# Metrics Catalog

Job engine:
  - murmur_jobs_total{status}: jobs in the snapshot by status (gauge)
  - murmur_queue_depth: ids in the ready-queue (gauge)
  - murmur_jobs_terminal_total{status}: terminal transitions (counter)
  - murmur_job_retries_total: transient requeues (counter)
  - murmur_jobs_recovered_total: restart-interrupted jobs (counter)
  - murmur_transcription_duration_seconds: transcriber wall time
  - murmur_marker_apply_duration_seconds: marker replace wall time

Note index:
  - murmur_index_notes_total{state}: identity records, live/deleted
  - murmur_revision_conflicts_total: optimistic-concurrency conflicts

API:
  - murmur_api_requests_total{method,status}
  - murmur_api_request_duration_seconds{method}

# Usage

Direct instrumentation:

	metrics.JobsTerminalTotal.WithLabelValues(string(job.Status)).Inc()

	timer := metrics.NewTimer()
	transcript, err := t.Transcribe(ctx, audioPath)
	timer.ObserveDuration(metrics.TranscriptionDuration)

Sampled gauges:

	collector := metrics.NewCollector(engine, index)
	collector.Start()
	defer collector.Stop()

Exposing:

	router.Handle("/metrics", metrics.Handler())

# Health

The package also owns the health endpoint payload (status, service,
version, uptime). cmd/murmurd sets the version at startup with
SetVersion; pkg/api mounts HealthHandler at /api/health.

# Integration Points

This package integrates with:

  - pkg/jobs: terminal/retry/recovery counters, durations, JobSource
  - pkg/noteindex: NoteSource for identity gauges
  - pkg/notes: conflict counter, apply duration
  - pkg/api: request metrics, /metrics and /api/health routes
  - cmd/murmurd: collector lifecycle, version string
*/
package metrics

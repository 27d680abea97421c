package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/storage"
	"github.com/murmurnotes/murmur/pkg/timeutil"
)

// EventType represents the type of event
type EventType string

const (
	EventJobCreated         EventType = "tx.job.created"
	EventJobStarted         EventType = "tx.job.started"
	EventJobCompleted       EventType = "tx.job.completed"
	EventJobOrphaned        EventType = "tx.job.orphaned"
	EventJobFailed          EventType = "tx.job.failed"
	EventJobRetry           EventType = "tx.job.retry"
	EventJobCancelled       EventType = "tx.job.cancelled"
	EventJobCancelRequested EventType = "tx.job.cancel_requested"
	EventJobResumed         EventType = "tx.job.resumed"
	EventJobsResumedAll     EventType = "tx.jobs.resumed.interrupted"
	EventJobsRecovered      EventType = "tx.jobs.recovered"
)

// line is the wire format of one event log entry
type line struct {
	TS    float64        `json:"ts"`
	ISO   string         `json:"iso"`
	Event EventType      `json:"event"`
	Data  map[string]any `json:"data"`
}

// Log is an append-only JSONL event log. Appends are best-effort:
// a failed write is logged and dropped, never surfaced to the
// mutation that produced the event. The snapshot is authoritative;
// this file exists for observability and forensic replay.
type Log struct {
	store  storage.Store
	name   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewLog creates an event log appended to the named file in store
func NewLog(store storage.Store, name string) *Log {
	return &Log{
		store:  store,
		name:   name,
		logger: log.WithComponent("events"),
	}
}

// Append writes one event line. Data may be nil.
func (l *Log) Append(event EventType, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	now := time.Now()
	entry := line{
		TS:    timeutil.NowUnix(),
		ISO:   timeutil.ISO(now),
		Event: event,
		Data:  data,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		l.logger.Warn().Err(err).Str("event", string(event)).Msg("failed to encode event")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.AppendLine(l.name, payload); err != nil {
		l.logger.Warn().Err(err).Str("event", string(event)).Msg("failed to append event")
	}
}

package metrics

import (
	"time"

	"github.com/murmurnotes/murmur/pkg/types"
)

// JobSource yields job counts for gauge collection
type JobSource interface {
	JobCounts() (byStatus map[types.JobStatus]int, queueDepth int)
}

// NoteSource yields note identity counts for gauge collection
type NoteSource interface {
	NoteCounts() (live int, deleted int)
}

// Collector periodically samples the engine and index into gauges
type Collector struct {
	jobs   JobSource
	notes  NoteSource
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(jobs JobSource, notes NoteSource) *Collector {
	return &Collector{
		jobs:   jobs,
		notes:  notes,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectJobMetrics()
	c.collectNoteMetrics()
}

func (c *Collector) collectJobMetrics() {
	if c.jobs == nil {
		return
	}
	byStatus, depth := c.jobs.JobCounts()

	// Zero every known status so vanished states do not linger
	statuses := []types.JobStatus{
		types.JobStatusQueued, types.JobStatusRunning,
		types.JobStatusCancelRequested, types.JobStatusCancelled,
		types.JobStatusCompleted, types.JobStatusFailed,
		types.JobStatusOrphaned, types.JobStatusInterrupted,
	}
	for _, s := range statuses {
		JobsTotal.WithLabelValues(string(s)).Set(float64(byStatus[s]))
	}
	QueueDepth.Set(float64(depth))
}

func (c *Collector) collectNoteMetrics() {
	if c.notes == nil {
		return
	}
	live, deleted := c.notes.NoteCounts()
	IndexNotesTotal.WithLabelValues("live").Set(float64(live))
	IndexNotesTotal.WithLabelValues("deleted").Set(float64(deleted))
}

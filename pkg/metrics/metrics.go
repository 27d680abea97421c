package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job engine metrics
	JobsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "murmur_jobs_total",
			Help: "Number of jobs in the snapshot by status",
		},
		[]string{"status"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "murmur_queue_depth",
			Help: "Number of job ids in the ready-queue",
		},
	)

	JobsTerminalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murmur_jobs_terminal_total",
			Help: "Total jobs that reached a terminal status, by status",
		},
		[]string{"status"},
	)

	JobRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "murmur_job_retries_total",
			Help: "Total transient-failure requeues",
		},
	)

	JobsRecoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "murmur_jobs_recovered_total",
			Help: "Total jobs marked interrupted by restart recovery",
		},
	)

	TranscriptionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "murmur_transcription_duration_seconds",
			Help:    "Wall-clock duration of transcriber invocations in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	MarkerApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "murmur_marker_apply_duration_seconds",
			Help:    "Duration of marker-replacement calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Note index metrics
	IndexNotesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "murmur_index_notes_total",
			Help: "Number of note identity records by state",
		},
		[]string{"state"},
	)

	RevisionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "murmur_revision_conflicts_total",
			Help: "Total optimistic-concurrency conflicts on note updates",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "murmur_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "murmur_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(JobsTerminalTotal)
	prometheus.MustRegister(JobRetriesTotal)
	prometheus.MustRegister(JobsRecoveredTotal)
	prometheus.MustRegister(TranscriptionDuration)
	prometheus.MustRegister(MarkerApplyDuration)
	prometheus.MustRegister(IndexNotesTotal)
	prometheus.MustRegister(RevisionConflictsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observations
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in the given histogram
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time with label values
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}

package settings

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tailscale/hujson"

	"github.com/murmurnotes/murmur/pkg/log"
	"github.com/murmurnotes/murmur/pkg/storage"
	"github.com/murmurnotes/murmur/pkg/types"
)

const settingsFile = "settings.json"

// Service holds the runtime-tunable settings document. The document
// is a free-form JSON object so unknown sections and keys written by
// other tools survive a round trip; the known transcription keys are
// coerced and clamped wherever they are read.
type Service struct {
	mu     sync.Mutex
	store  storage.Store
	doc    map[string]any
	logger zerolog.Logger
}

// New loads settings from the store. An absent file is materialized
// with defaults; an unreadable one falls back to defaults without
// overwriting whatever is on disk.
func New(store storage.Store) *Service {
	s := &Service{
		store:  store,
		logger: log.WithComponent("settings"),
	}

	raw, err := os.ReadFile(store.Path(settingsFile))
	if err != nil {
		s.doc = sanitize(defaultsDoc())
		if err := store.SaveJSON(settingsFile, s.doc); err != nil {
			s.logger.Warn().Err(err).Msg("failed to write default settings")
		}
		return s
	}

	// The file is hand-editable; accept comments and trailing commas.
	std, err := hujson.Standardize(raw)
	if err != nil {
		std = raw
	}
	var parsed map[string]any
	if err := json.Unmarshal(std, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("settings file unreadable, using defaults")
		parsed = map[string]any{}
	}
	s.doc = mergeDocs(defaultsDoc(), parsed)
	return s
}

// Get returns a deep copy of the whole settings document.
func (s *Service) Get() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopy(s.doc)
}

// Update deep-merges a patch into the document, normalizes the known
// transcription keys, persists, and returns the effective document.
func (s *Service) Update(patch map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = sanitize(mergeDocs(s.doc, patch))
	if err := s.store.SaveJSON(settingsFile, s.doc); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	s.logger.Info().Strs("sections", keys).Msg("settings updated")
	return deepCopy(s.doc), nil
}

// Transcription returns the clamped engine settings. Workers call
// this on every scheduling decision, so changes apply without a
// restart.
func (s *Service) Transcription() types.TranscriptionSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, _ := s.doc["transcription"].(map[string]any)
	d := types.DefaultTranscriptionSettings()
	return types.TranscriptionSettings{
		MaxConcurrentJobs:      clampInt(tx["max_concurrent_jobs"], d.MaxConcurrentJobs, 1, 8),
		MaxQueuedJobs:          clampInt(tx["max_queued_jobs"], d.MaxQueuedJobs, 1, 500),
		HistoryMaxEntries:      clampInt(tx["history_max_entries"], d.HistoryMaxEntries, 10, 5000),
		HistoryTTLDays:         clampInt(tx["history_ttl_days"], d.HistoryTTLDays, 1, 365),
		RetryMax:               clampInt(tx["retry_max"], d.RetryMax, 0, 10),
		RetryBaseMS:            clampInt(tx["retry_base_ms"], d.RetryBaseMS, 100, 60000),
		AutoRequeueInterrupted: coerceBool(tx["auto_requeue_interrupted"], d.AutoRequeueInterrupted),
	}
}

func defaultsDoc() map[string]any {
	d := types.DefaultTranscriptionSettings()
	return map[string]any{
		"transcription": map[string]any{
			"max_concurrent_jobs":      d.MaxConcurrentJobs,
			"max_queued_jobs":          d.MaxQueuedJobs,
			"history_max_entries":      d.HistoryMaxEntries,
			"history_ttl_days":         d.HistoryTTLDays,
			"retry_max":                d.RetryMax,
			"retry_base_ms":            d.RetryBaseMS,
			"auto_requeue_interrupted": d.AutoRequeueInterrupted,
		},
	}
}

// sanitize merges the document over defaults and normalizes every
// known transcription key to its clamped canonical form.
func sanitize(doc map[string]any) map[string]any {
	merged := mergeDocs(defaultsDoc(), doc)
	tx, ok := merged["transcription"].(map[string]any)
	if !ok {
		tx = map[string]any{}
	}
	d := types.DefaultTranscriptionSettings()
	tx["max_concurrent_jobs"] = clampInt(tx["max_concurrent_jobs"], d.MaxConcurrentJobs, 1, 8)
	tx["max_queued_jobs"] = clampInt(tx["max_queued_jobs"], d.MaxQueuedJobs, 1, 500)
	tx["history_max_entries"] = clampInt(tx["history_max_entries"], d.HistoryMaxEntries, 10, 5000)
	tx["history_ttl_days"] = clampInt(tx["history_ttl_days"], d.HistoryTTLDays, 1, 365)
	tx["retry_max"] = clampInt(tx["retry_max"], d.RetryMax, 0, 10)
	tx["retry_base_ms"] = clampInt(tx["retry_base_ms"], d.RetryBaseMS, 100, 60000)
	tx["auto_requeue_interrupted"] = coerceBool(tx["auto_requeue_interrupted"], d.AutoRequeueInterrupted)
	merged["transcription"] = tx
	return merged
}

// mergeDocs deep-merges override into base without mutating either.
// Maps merge recursively; any other value type is replaced wholesale.
// Keys only in override are kept, which is how unknown settings
// survive.
func mergeDocs(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		ov, present := override[k]
		if !present {
			merged[k] = v
			continue
		}
		bm, bok := v.(map[string]any)
		om, ook := ov.(map[string]any)
		if bok && ook {
			merged[k] = mergeDocs(bm, om)
		} else {
			merged[k] = ov
		}
	}
	for k, v := range override {
		if _, present := merged[k]; !present {
			merged[k] = v
		}
	}
	return merged
}

// clampInt coerces a JSON value to int and clamps it to [min, max].
// Anything uncoercible becomes the fallback before clamping.
func clampInt(v any, fallback, min, max int) int {
	n := fallback
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		n = int(t)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			n = parsed
		}
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func coerceBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

func deepCopy(doc map[string]any) map[string]any {
	data, err := json.Marshal(doc)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

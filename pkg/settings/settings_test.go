package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurnotes/murmur/pkg/storage"
	"github.com/murmurnotes/murmur/pkg/types"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	return New(store), dir
}

func TestAbsentFileMaterializesDefaults(t *testing.T) {
	svc, dir := newTestService(t)

	assert.Equal(t, types.DefaultTranscriptionSettings(), svc.Transcription())

	_, err := os.Stat(filepath.Join(dir, settingsFile))
	assert.NoError(t, err)
}

func TestCorruptFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte("{{{{"), 0644))
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	svc := New(store)
	assert.Equal(t, types.DefaultTranscriptionSettings(), svc.Transcription())
}

func TestTolerantParse(t *testing.T) {
	dir := t.TempDir()
	content := `{
	// hand-tuned for the laptop
	"transcription": {
		"max_concurrent_jobs": 4,
		"retry_max": 0,
	},
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(content), 0644))
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	svc := New(store)
	tx := svc.Transcription()
	assert.Equal(t, 4, tx.MaxConcurrentJobs)
	assert.Equal(t, 0, tx.RetryMax)
	assert.Equal(t, 50, tx.MaxQueuedJobs, "missing keys come from defaults")
}

func TestClamping(t *testing.T) {
	dir := t.TempDir()
	content := `{"transcription": {
		"max_concurrent_jobs": 99,
		"max_queued_jobs": 0,
		"history_max_entries": "250",
		"history_ttl_days": 9000,
		"retry_base_ms": 5,
		"retry_max": -3,
		"auto_requeue_interrupted": false
	}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(content), 0644))
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	tx := New(store).Transcription()
	assert.Equal(t, 8, tx.MaxConcurrentJobs)
	assert.Equal(t, 1, tx.MaxQueuedJobs)
	assert.Equal(t, 250, tx.HistoryMaxEntries, "numeric strings are coerced")
	assert.Equal(t, 365, tx.HistoryTTLDays)
	assert.Equal(t, 100, tx.RetryBaseMS)
	assert.Equal(t, 0, tx.RetryMax)
	assert.False(t, tx.AutoRequeueInterrupted)
}

func TestUncoercibleValueFallsBack(t *testing.T) {
	dir := t.TempDir()
	content := `{"transcription": {"max_concurrent_jobs": "lots", "auto_requeue_interrupted": "yes"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(content), 0644))
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	tx := New(store).Transcription()
	assert.Equal(t, 2, tx.MaxConcurrentJobs)
	assert.True(t, tx.AutoRequeueInterrupted)
}

func TestUpdateMergesAndClamps(t *testing.T) {
	svc, _ := newTestService(t)

	doc, err := svc.Update(map[string]any{
		"transcription": map[string]any{
			"max_concurrent_jobs": 6,
			"retry_base_ms":       999999,
		},
	})
	require.NoError(t, err)

	tx := svc.Transcription()
	assert.Equal(t, 6, tx.MaxConcurrentJobs)
	assert.Equal(t, 60000, tx.RetryBaseMS)
	assert.Equal(t, 50, tx.MaxQueuedJobs, "untouched keys keep their values")

	section, ok := doc["transcription"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 6, section["max_concurrent_jobs"])
}

func TestUpdatePersists(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	svc := New(store)
	_, err = svc.Update(map[string]any{
		"transcription": map[string]any{"history_ttl_days": 30},
	})
	require.NoError(t, err)

	reloaded := New(store)
	assert.Equal(t, 30, reloaded.Transcription().HistoryTTLDays)
}

func TestUnknownKeysPreserved(t *testing.T) {
	dir := t.TempDir()
	content := `{
		"transcription": {"max_concurrent_jobs": 3, "plugin_hint": "gpu"},
		"ui": {"theme": "dark"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, settingsFile), []byte(content), 0644))
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	svc := New(store)
	_, err = svc.Update(map[string]any{
		"transcription": map[string]any{"max_concurrent_jobs": 5},
	})
	require.NoError(t, err)

	reloaded := New(store)
	doc := reloaded.Get()
	ui, ok := doc["ui"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dark", ui["theme"])
	tx, ok := doc["transcription"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gpu", tx["plugin_hint"])
	assert.EqualValues(t, 5, tx["max_concurrent_jobs"])
}

func TestGetReturnsCopy(t *testing.T) {
	svc, _ := newTestService(t)

	doc := svc.Get()
	tx := doc["transcription"].(map[string]any)
	tx["max_concurrent_jobs"] = 8

	assert.Equal(t, 2, svc.Transcription().MaxConcurrentJobs, "mutating the copy does not leak back")
}

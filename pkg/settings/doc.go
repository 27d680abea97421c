// Package settings manages the runtime-tunable settings document.
//
// Settings live in settings.json under the state directory and can
// be edited by hand; the parser tolerates comments and trailing
// commas. Updates through the API deep-merge a patch, clamp the known
// transcription keys into their valid ranges, and rewrite the file
// atomically. Unknown keys pass through untouched so the file can be
// shared with other tools.
//
// The job engine reads Transcription() on every scheduling decision
// rather than caching it, so concurrency and retry changes take
// effect on the next lease without a restart.
package settings

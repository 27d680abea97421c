// Package transcriber defines the audio-to-text boundary.
//
// The Transcriber interface is the engine's only view of speech
// recognition; the production implementation (ExecTranscriber) shells
// out to a whisper-style command, and tests swap in fakes. Runs are
// serialized by the implementation itself because the model is not
// safe for concurrent use.
//
// Error retryability travels with the error: implementations tag
// transient failures with MarkTransient, and IsTransient additionally
// recognizes a fixed set of message patterns (timeouts, resets, 5xx)
// from implementations that cannot tag.
//
// Audio validation (format allowlist, 100 MB cap) lives here too so
// the upload path and the synchronous endpoint reject files with the
// same messages.
package transcriber

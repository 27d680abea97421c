// Package uploads manages scratch audio files between HTTP receipt
// and job admission.
//
// The awkward window: the audio must be on disk before a job can be
// created, but if admission fails (queue full, target note gone) the
// file must not leak. Save returns a Receipt; the handler defers
// Discard and calls Commit only once the engine has accepted the job.
// Exactly one party ends up owning the file.
package uploads

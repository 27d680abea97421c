// Package notestore implements the filesystem layer for notes and
// folders.
//
// All paths are relative to a single notes root and use forward
// slashes regardless of platform. The store enforces containment:
// any path with traversal segments, an absolute form, or a leading
// separator is rejected before it touches the filesystem.
//
// Notes are plain files with a .txt or .md extension. Callers may
// omit the extension; the store resolves it by probing existing
// files and defaults new notes to .txt. Content writes go through a
// temp-file rename so partial writes are never visible.
//
// The store is deliberately identity-free. Stable note ids and
// revision counters live in the index layer, and the notes package
// composes the two.
package notestore

// Package cache implements the content-addressed on-disk store shared by every
// pipeline stage.
//
// Artifacts are keyed by the MD5 of the normalized source URL and laid out as
// videos/<key>.mp4, audio/<key>.mp3, keyframes/<key>/ and
// analysis/<key>-{metadata,visual,asr}.json. Presence of a file means the
// artifact is valid; JSON artifacts are written atomically so a crash never
// leaves a truncated record behind. An entry counts as complete only when the
// video, audio and metadata are all present.
//
// Lock serializes invocations that target the same key using an advisory file
// lock under locks/. Stats reports per-key usage and filesystem free space for
// the CLI.
package cache

// Package acquire downloads a source video and its audio track with yt-dlp,
// probes the result with ffprobe, and records the metadata in the content
// cache.
//
// A complete cache entry short-circuits the whole stage. Missing video after
// a download is fatal; a missing audio track only degrades transcription.
package acquire

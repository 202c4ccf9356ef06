// Package ffprobe runs ffprobe against downloaded videos and flattens the
// report into VideoMetadata, the record cached next to each video.
package ffprobe
